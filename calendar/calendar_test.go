package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/timgluz/abfuhrplan/collection"
)

func newTestSchedule(t *testing.T) *collection.Schedule {
	t.Helper()

	return &collection.Schedule{
		Street: "Bahnhofspassage",
		Number: "2",
		Entries: []collection.Collection{
			collection.NewCollection(mustDate(t, "2026-01-05"), collection.WasteTypeRecyclable),
			collection.NewCollection(mustDate(t, "2026-01-12"), collection.WasteTypeOrganic),
		},
		FetchedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Unix(),
	}
}

func mustDate(t *testing.T, value string) collection.Date {
	t.Helper()

	date, err := collection.ParseDate(value)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", value, err)
	}

	return date
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	opts := ICSOptions{Reminders: []Reminder{{DaysBefore: 1, Time: "17:00"}}}

	if err := WriteICS(&buf, newTestSchedule(t), opts); err != nil {
		t.Fatalf("WriteICS failed: %v", err)
	}

	body := buf.String()

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//abfuhrplan//WAS Wolfsburg Abfuhrtermine//DE",
		"X-WR-CALNAME:Abfuhrtermine Bahnhofspassage 2",
		"X-WR-TIMEZONE:Europe/Berlin",
		"CALSCALE:GREGORIAN",
		"BEGIN:VEVENT",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	for _, field := range requiredFields {
		if !strings.Contains(body, field) {
			t.Errorf("ICS output missing required field: %s", field)
		}
	}

	// All-day events span exactly one day
	if !strings.Contains(body, "DTSTART;VALUE=DATE:20260105") {
		t.Error("Event should be all-day (DTSTART;VALUE=DATE)")
	}
	if !strings.Contains(body, "DTEND;VALUE=DATE:20260106") {
		t.Error("All-day event should end on next day")
	}

	if !strings.Contains(body, "SUMMARY:Wertstofftonne") {
		t.Error("Missing event summary for Wertstofftonne")
	}
	if !strings.Contains(body, "SUMMARY:Bioabfall") {
		t.Error("Missing event summary for Bioabfall")
	}
	if !strings.Contains(body, "LOCATION:Bahnhofspassage 2") {
		t.Error("Missing event location")
	}
	if !strings.Contains(body, "DESCRIPTION:Abfuhr Wertstofftonne in Bahnhofspassage 2") {
		t.Error("Missing event description")
	}

	// UIDs must be stable so refreshed downloads do not duplicate events
	if !strings.Contains(body, "UID:2026-01-05-wertstofftonne-bahnhofspassage-2@abfuhrplan.was-wolfsburg.de") {
		t.Error("Missing stable event UID")
	}
	if !strings.Contains(body, "DTSTAMP:20260101T120000Z") {
		t.Error("DTSTAMP should come from the fetch time")
	}

	alarmCount := strings.Count(body, "BEGIN:VALARM")
	if alarmCount != 2 {
		t.Errorf("Expected 2 alarms, got %d", alarmCount)
	}
	if !strings.Contains(body, "ACTION:DISPLAY") {
		t.Error("Alarm missing ACTION:DISPLAY")
	}
	if !strings.Contains(body, "TRIGGER:-P0DT7H0M") {
		t.Error("Alarm missing trigger 17:00 the day before")
	}
	if !strings.Contains(body, "DESCRIPTION:Erinnerung: Wertstofftonne") {
		t.Error("Alarm missing reminder description")
	}
}

func TestWriteICS_ReminderTriggers(t *testing.T) {
	tests := []struct {
		name        string
		reminder    Reminder
		wantTrigger string
	}{
		{
			name:        "2 days before at 18:00",
			reminder:    Reminder{DaysBefore: 2, Time: "18:00"},
			wantTrigger: "TRIGGER:-P1DT6H0M",
		},
		{
			name:        "1 day before at 19:00",
			reminder:    Reminder{DaysBefore: 1, Time: "19:00"},
			wantTrigger: "TRIGGER:-P0DT5H0M",
		},
		{
			name:        "same day at 07:00",
			reminder:    Reminder{DaysBefore: 0, Time: "07:00"},
			wantTrigger: "TRIGGER:P0DT7H0M",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			opts := ICSOptions{Reminders: []Reminder{tt.reminder}}

			if err := WriteICS(&buf, newTestSchedule(t), opts); err != nil {
				t.Fatalf("WriteICS failed: %v", err)
			}

			if !strings.Contains(buf.String(), tt.wantTrigger) {
				t.Errorf("Expected %s, got output:\n%s", tt.wantTrigger, buf.String())
			}
		})
	}
}

func TestWriteICS_InvalidReminderTimeSkipsAlarm(t *testing.T) {
	var buf bytes.Buffer
	opts := ICSOptions{Reminders: []Reminder{{DaysBefore: 1, Time: "7pm"}}}

	if err := WriteICS(&buf, newTestSchedule(t), opts); err != nil {
		t.Fatalf("WriteICS failed: %v", err)
	}

	if strings.Contains(buf.String(), "BEGIN:VALARM") {
		t.Error("Unparsable reminder times should not produce alarms")
	}
}

func TestWriteICS_NilSchedule(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteICS(&buf, nil, ICSOptions{}); err == nil {
		t.Error("Expected error for nil schedule")
	}
}

func TestWriteSubscriptionICS(t *testing.T) {
	var buf bytes.Buffer
	opts := ICSOptions{Reminders: []Reminder{{DaysBefore: 1, Time: "17:00"}}}

	if err := WriteSubscriptionICS(&buf, newTestSchedule(t), opts); err != nil {
		t.Fatalf("WriteSubscriptionICS failed: %v", err)
	}

	body := buf.String()

	if !strings.Contains(body, "METHOD:PUBLISH") {
		t.Error("Subscription feed missing METHOD:PUBLISH")
	}
	if !strings.Contains(body, "X-PUBLISHED-TTL:PT1H") {
		t.Error("Subscription feed missing default refresh interval")
	}
	if strings.Contains(body, "BEGIN:VALARM") {
		t.Error("Subscription feeds must not carry alarms")
	}
	if strings.Count(body, "BEGIN:VEVENT") != 2 {
		t.Error("Subscription feed should contain all events")
	}
	if !strings.Contains(body, "UID:2026-01-12-bioabfall-bahnhofspassage-2@abfuhrplan.was-wolfsburg.de") {
		t.Error("Missing stable event UID")
	}
}

func TestWriteSubscriptionICS_CustomTTL(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteSubscriptionICS(&buf, newTestSchedule(t), ICSOptions{TTL: 6 * time.Hour}); err != nil {
		t.Fatalf("WriteSubscriptionICS failed: %v", err)
	}

	if !strings.Contains(buf.String(), "X-PUBLISHED-TTL:PT6H") {
		t.Error("Subscription feed should carry the configured refresh interval")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteCSV(&buf, newTestSchedule(t)); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	body := buf.String()

	if !strings.Contains(body, "Datum,Abfallart,Icon") {
		t.Error("Missing CSV header")
	}
	if !strings.Contains(body, "2026-01-05,Wertstofftonne,mdi:recycle") {
		t.Error("Missing first pickup in CSV")
	}
	if !strings.Contains(body, "2026-01-12,Bioabfall,mdi:leaf") {
		t.Error("Missing second pickup in CSV")
	}
}

func TestWriteCSV_NilSchedule(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteCSV(&buf, nil); err == nil {
		t.Error("Expected error for nil schedule")
	}
}
