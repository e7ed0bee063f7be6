package collection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	SourceTitle       = "Wolfsburger Abfallwirtschaft und Straßenreinigung"
	SourceDescription = "Waste collection schedules for WAS Wolfsburg, Germany"
	SourceURL         = "https://was-wolfsburg.de"
)

// DateLayout is the only accepted form for collection dates.
const DateLayout = "2006-01-02"

type WasteType string

const (
	WasteTypeRecyclable WasteType = "Wertstofftonne"
	WasteTypeOrganic    WasteType = "Bioabfall"
	WasteTypeResidual   WasteType = "Restabfall"
	WasteTypePaper      WasteType = "Altpapier"
)

var wasteTypeIcons = map[WasteType]string{
	WasteTypeRecyclable: "mdi:recycle",
	WasteTypeOrganic:    "mdi:leaf",
	WasteTypeResidual:   "mdi:trash-can",
	WasteTypePaper:      "mdi:file-document-outline",
}

// AllWasteTypes returns every known waste type in its fixed schedule order.
// Collections are always emitted in this order, one block per type.
func AllWasteTypes() []WasteType {
	return []WasteType{WasteTypeRecyclable, WasteTypeOrganic, WasteTypeResidual, WasteTypePaper}
}

func (t WasteType) Icon() string {
	return wasteTypeIcons[t]
}

func (t WasteType) IsValid() bool {
	_, ok := wasteTypeIcons[t]
	return ok
}

func ParseWasteType(s string) (WasteType, error) {
	wasteType := WasteType(s)
	if !wasteType.IsValid() {
		return "", fmt.Errorf("unknown waste type: %q", s)
	}

	return wasteType, nil
}

// Date is a single calendar day. The upstream API only speaks in days,
// so the time of day is always midnight UTC.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	return NewDate(time.Now().UTC())
}

// ParseDate parses a collection date. Anything that is not exactly
// YYYY-MM-DD is rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}

	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) IsZero() bool {
	return d.Time.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Collection is a single pickup event for one waste type.
type Collection struct {
	Date      Date      `json:"date"`
	WasteType WasteType `json:"waste_type"`
	Icon      string    `json:"icon"`
}

func NewCollection(date Date, wasteType WasteType) Collection {
	return Collection{
		Date:      date,
		WasteType: wasteType,
		Icon:      wasteType.Icon(),
	}
}

// Address identifies a serviced household: street name and house number,
// both exactly as the upstream API expects them.
type Address struct {
	Street string `json:"street"`
	Number string `json:"number"`
}

func NewAddress(street, number string) Address {
	return Address{Street: street, Number: number}
}

// ParseAddress splits "Bahnhofspassage 2" into street and house number.
// The number is everything after the last space, street names may contain
// spaces themselves.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	idx := strings.LastIndex(trimmed, " ")
	if idx < 0 {
		return Address{}, fmt.Errorf("invalid address %q: expected street and house number", s)
	}

	address := Address{
		Street: strings.TrimSpace(trimmed[:idx]),
		Number: strings.TrimSpace(trimmed[idx+1:]),
	}

	if !address.IsValid() {
		return Address{}, fmt.Errorf("invalid address %q: expected street and house number", s)
	}

	return address, nil
}

func (a Address) IsValid() bool {
	return a.Street != "" && a.Number != ""
}

func (a Address) String() string {
	return a.Street + " " + a.Number
}

// Key returns the storage key used by repositories, e.g. "bahnhofspassage-2".
func (a Address) Key() string {
	return slug.Make(a.Street + "-" + a.Number)
}

// Schedule is the full set of pickup dates fetched for one address.
type Schedule struct {
	Street    string       `json:"street"`
	Number    string       `json:"number"`
	Entries   []Collection `json:"entries"`
	FetchedAt int64        `json:"fetched_at"`
}

func NewSchedule(address Address, entries []Collection) *Schedule {
	return &Schedule{
		Street:    address.Street,
		Number:    address.Number,
		Entries:   entries,
		FetchedAt: time.Now().Unix(),
	}
}

func (s *Schedule) Address() Address {
	return Address{Street: s.Street, Number: s.Number}
}

func (s *Schedule) IsEmpty() bool {
	return len(s.Entries) == 0
}

// Upcoming returns the entries whose date falls inside the given period,
// keeping the original order.
func (s *Schedule) Upcoming(period Period) []Collection {
	entries := make([]Collection, 0, len(s.Entries))
	for _, entry := range s.Entries {
		if period.Contains(entry.Date) {
			entries = append(entries, entry)
		}
	}

	return entries
}

// NextByType returns the earliest pickup date per waste type.
func (s *Schedule) NextByType() map[WasteType]Date {
	next := make(map[WasteType]Date)
	for _, entry := range s.Entries {
		current, ok := next[entry.WasteType]
		if !ok || entry.Date.Before(current.Time) {
			next[entry.WasteType] = entry.Date
		}
	}

	return next
}
