package street

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// Street is one serviced street with the house numbers the waste collection
// API knows for it. Names keep their exact upstream spelling, including
// umlauts, because lookups against the API are literal.
type Street struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	HouseNumbers []string `json:"house_numbers"`
}

func (s *Street) Slug() string {
	return slug.Make(s.Name)
}

// SortedHouseNumbers returns the house numbers sorted ascending by their
// numeric value: all digits of the string concatenated, or 0 when there are
// none. Equal values keep their original order, so "10a" sorts after "2".
func (s *Street) SortedHouseNumbers() []string {
	numbers := make([]string, len(s.HouseNumbers))
	copy(numbers, s.HouseNumbers)

	sort.SliceStable(numbers, func(i, j int) bool {
		return houseNumberValue(numbers[i]) < houseNumberValue(numbers[j])
	})

	return numbers
}

func houseNumberValue(number string) int {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if digits.Len() == 0 {
		return 0
	}

	value, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}

	return value
}

// Directory is the full street listing of the collection area. It is fetched
// on demand and discarded after use, never cached.
type Directory struct {
	Streets []Street `json:"streets"`
}

func NewDirectory(streets []Street) *Directory {
	return &Directory{Streets: streets}
}

func (d *Directory) Len() int {
	return len(d.Streets)
}

// FindByName returns the first street whose name matches exactly. There is
// no normalization, "bahnhofspassage" does not match "Bahnhofspassage".
func (d *Directory) FindByName(name string) (*Street, bool) {
	for i := range d.Streets {
		if d.Streets[i].Name == name {
			return &d.Streets[i], true
		}
	}

	return nil, false
}

// Names returns all street names in lexicographic order.
func (d *Directory) Names() []string {
	names := make([]string, len(d.Streets))
	for i, s := range d.Streets {
		names[i] = s.Name
	}

	sort.Strings(names)
	return names
}

// Page returns a slice of the directory for paginated listings. Out of range
// values fall back to the full remainder.
func (d *Directory) Page(offset, limit int) []Street {
	total := len(d.Streets)

	if offset < 0 || offset >= total {
		offset = 0
	}

	if limit <= 0 || offset+limit > total {
		limit = total - offset
	}

	return d.Streets[offset : offset+limit]
}
