package street

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestDirectory() *Directory {
	return NewDirectory([]Street{
		{ID: "7", Name: "Zum Eichholz", HouseNumbers: []string{"1", "2"}},
		{ID: "3", Name: "Amtsweg", HouseNumbers: []string{"5"}},
		{ID: "9", Name: "Bahnhofspassage", HouseNumbers: []string{"2", "6"}},
	})
}

func TestSortedHouseNumbers(t *testing.T) {
	testCases := []struct {
		name     string
		numbers  []string
		expected []string
	}{
		{
			name:     "numeric value wins over text order",
			numbers:  []string{"10a", "2", "1"},
			expected: []string{"1", "2", "10a"},
		},
		{
			name:     "numbers without digits sort first and keep their order",
			numbers:  []string{"a", "1", "b"},
			expected: []string{"a", "b", "1"},
		},
		{
			name:     "digits are concatenated",
			numbers:  []string{"3-5", "2"},
			expected: []string{"2", "3-5"},
		},
		{
			name:     "empty list",
			numbers:  []string{},
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			street := Street{Name: "Teststraße", HouseNumbers: tc.numbers}

			assert.Equal(t, tc.expected, street.SortedHouseNumbers(), "sort mismatch for case: %s", tc.name)
			assert.Equal(t, tc.numbers, street.HouseNumbers, "the original order must not change")
		})
	}
}

func TestDirectoryFindByName(t *testing.T) {
	directory := newTestDirectory()

	street, ok := directory.FindByName("Amtsweg")
	assert.True(t, ok)
	assert.Equal(t, "3", street.ID)

	_, ok = directory.FindByName("amtsweg")
	assert.False(t, ok, "lookups are case sensitive")

	_, ok = directory.FindByName("Hauptstraße")
	assert.False(t, ok)
}

func TestDirectoryFindByName_FirstMatchWins(t *testing.T) {
	directory := NewDirectory([]Street{
		{ID: "1", Name: "Amtsweg", HouseNumbers: []string{"1"}},
		{ID: "2", Name: "Amtsweg", HouseNumbers: []string{"2"}},
	})

	street, ok := directory.FindByName("Amtsweg")
	assert.True(t, ok)
	assert.Equal(t, "1", street.ID)
}

func TestDirectoryNames(t *testing.T) {
	directory := newTestDirectory()

	assert.Equal(t, []string{"Amtsweg", "Bahnhofspassage", "Zum Eichholz"}, directory.Names())
}

func TestDirectoryPage(t *testing.T) {
	directory := newTestDirectory()

	testCases := []struct {
		name     string
		offset   int
		limit    int
		expected []string
	}{
		{name: "first page", offset: 0, limit: 2, expected: []string{"Zum Eichholz", "Amtsweg"}},
		{name: "second page", offset: 2, limit: 2, expected: []string{"Bahnhofspassage"}},
		{name: "zero limit returns the remainder", offset: 1, limit: 0, expected: []string{"Amtsweg", "Bahnhofspassage"}},
		{name: "offset out of range falls back to start", offset: 10, limit: 2, expected: []string{"Zum Eichholz", "Amtsweg"}},
		{name: "negative offset falls back to start", offset: -1, limit: 1, expected: []string{"Zum Eichholz"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page := directory.Page(tc.offset, tc.limit)

			names := make([]string, len(page))
			for i, s := range page {
				names[i] = s.Name
			}

			assert.Equal(t, tc.expected, names, "page mismatch for case: %s", tc.name)
		})
	}
}

func TestStreetSlug(t *testing.T) {
	street := Street{Name: "Zum Eichholz"}

	assert.Equal(t, "zum-eichholz", street.Slug())
}
