package collection

import (
	"fmt"

	"github.com/sosodev/duration"
)

var ErrInvalidPeriod = fmt.Errorf("invalid period")

// Period is an inclusive range of calendar days.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewPeriod(start, end Date) (*Period, error) {
	period := &Period{Start: start, End: end}
	if !period.IsValid() {
		return nil, ErrInvalidPeriod
	}

	return period, nil
}

// NewUpcomingPeriod builds the window [today, today + duration] from an
// ISO 8601 duration like "P14D".
func NewUpcomingPeriod(iso8601 string) (*Period, error) {
	start := Today()
	end, err := addISO8601Duration(start, iso8601)
	if err != nil {
		return nil, err
	}

	return NewPeriod(start, end)
}

// NewPastPeriod builds the window [today - duration, today].
func NewPastPeriod(iso8601 string) (*Period, error) {
	end := Today()
	start, err := subtractISO8601Duration(end, iso8601)
	if err != nil {
		return nil, err
	}

	return NewPeriod(start, end)
}

func (p *Period) IsValid() bool {
	return !p.Start.After(p.End.Time)
}

func (p *Period) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

// String renders the span as an ISO 8601 duration.
func (p *Period) String() string {
	isoDuration := duration.FromTimeDuration(p.End.Sub(p.Start.Time))
	return isoDuration.String()
}

func addISO8601Duration(d Date, iso8601 string) (Date, error) {
	parsed, err := duration.Parse(iso8601)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse duration %q: %w", iso8601, err)
	}

	return NewDate(d.Add(parsed.ToTimeDuration())), nil
}

func subtractISO8601Duration(d Date, iso8601 string) (Date, error) {
	parsed, err := duration.Parse(iso8601)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse duration %q: %w", iso8601, err)
	}

	return NewDate(d.Add(-parsed.ToTimeDuration())), nil
}
