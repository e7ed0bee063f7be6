package collection

import (
	"testing"
	"time"

	"github.com/sosodev/duration"
	"github.com/stretchr/testify/assert"
)

func TestNewUpcomingPeriod(t *testing.T) {
	period, err := NewUpcomingPeriod("P14D")

	assert.NoError(t, err)
	assert.Equal(t, Today().String(), period.Start.String())
	assert.Equal(t, 14*24*time.Hour, period.End.Sub(period.Start.Time))
}

func TestNewPastPeriod(t *testing.T) {
	period, err := NewPastPeriod("P90D")

	assert.NoError(t, err)
	assert.Equal(t, Today().String(), period.End.String())
	assert.Equal(t, 90*24*time.Hour, period.End.Sub(period.Start.Time))
}

func TestNewUpcomingPeriod_InvalidDuration(t *testing.T) {
	testCases := []string{"", "14 days", "14D", "Pfourteen"}

	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			_, err := NewUpcomingPeriod(input)
			assert.Error(t, err, "expected error for input: %s", input)
		})
	}
}

func TestNewPeriod_RejectsReversedBounds(t *testing.T) {
	start := mustParseDate(t, "2026-01-20")
	end := mustParseDate(t, "2026-01-10")

	_, err := NewPeriod(start, end)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodContains(t *testing.T) {
	period, err := NewPeriod(mustParseDate(t, "2026-01-10"), mustParseDate(t, "2026-01-20"))
	assert.NoError(t, err)

	testCases := []struct {
		name     string
		date     string
		expected bool
	}{
		{name: "start bound", date: "2026-01-10", expected: true},
		{name: "end bound", date: "2026-01-20", expected: true},
		{name: "inside", date: "2026-01-15", expected: true},
		{name: "day before start", date: "2026-01-09", expected: false},
		{name: "day after end", date: "2026-01-21", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, period.Contains(mustParseDate(t, tc.date)), "mismatch for case: %s", tc.name)
		})
	}
}

func TestPeriodString_RoundTrip(t *testing.T) {
	period, err := NewPeriod(mustParseDate(t, "2026-01-10"), mustParseDate(t, "2026-01-24"))
	assert.NoError(t, err)

	parsed, err := duration.Parse(period.String())
	assert.NoError(t, err, "period must render as a parseable ISO 8601 duration")
	assert.Equal(t, 14*24*time.Hour, parsed.ToTimeDuration())
}
