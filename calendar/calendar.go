package calendar

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/sosodev/duration"

	"github.com/timgluz/abfuhrplan/collection"
)

const (
	ICSProductID = "-//abfuhrplan//WAS Wolfsburg Abfuhrtermine//DE"
	ICSTimezone  = "Europe/Berlin"

	DefaultUIDHost         = "abfuhrplan.was-wolfsburg.de"
	DefaultSubscriptionTTL = time.Hour

	dateStampLayout = "20060102T150405Z"
	dateValueLayout = "20060102"
)

// Reminder is a display alarm before a pickup: how many days ahead and at
// which local clock time (HH:MM).
type Reminder struct {
	DaysBefore int
	Time       string
}

type ICSOptions struct {
	UIDHost   string
	Reminders []Reminder

	// TTL is the suggested refresh interval for subscription feeds.
	TTL time.Duration
}

func (o ICSOptions) uidHost() string {
	if o.UIDHost == "" {
		return DefaultUIDHost
	}
	return o.UIDHost
}

func (o ICSOptions) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultSubscriptionTTL
	}
	return o.TTL
}

// icsWriter keeps the first write error so the generators do not have to
// check every line.
type icsWriter struct {
	w   io.Writer
	err error
}

func (iw *icsWriter) printf(format string, args ...any) {
	if iw.err != nil {
		return
	}
	_, iw.err = fmt.Fprintf(iw.w, format, args...)
}

func (iw *icsWriter) println(line string) {
	iw.printf("%s\n", line)
}

// WriteICS renders the schedule as a downloadable iCalendar file with one
// all-day event per pickup and optional display reminders.
func WriteICS(w io.Writer, schedule *collection.Schedule, opts ICSOptions) error {
	if schedule == nil {
		return fmt.Errorf("schedule cannot be nil")
	}

	iw := &icsWriter{w: w}
	address := schedule.Address()

	iw.println("BEGIN:VCALENDAR")
	iw.println("VERSION:2.0")
	iw.printf("PRODID:%s\n", ICSProductID)
	iw.printf("X-WR-CALNAME:Abfuhrtermine %s\n", address.String())
	iw.printf("X-WR-TIMEZONE:%s\n", ICSTimezone)
	iw.println("CALSCALE:GREGORIAN")

	for _, entry := range schedule.Entries {
		writeEvent(iw, schedule, entry, opts)

		for _, reminder := range opts.Reminders {
			writeAlarm(iw, entry, reminder)
		}

		iw.println("END:VEVENT")
	}

	iw.println("END:VCALENDAR")
	return iw.err
}

// WriteSubscriptionICS renders the schedule as a subscription feed. Feeds
// carry METHOD:PUBLISH and a refresh interval, but no alarms; calendar apps
// ignore alarms in subscribed calendars anyway.
func WriteSubscriptionICS(w io.Writer, schedule *collection.Schedule, opts ICSOptions) error {
	if schedule == nil {
		return fmt.Errorf("schedule cannot be nil")
	}

	iw := &icsWriter{w: w}
	address := schedule.Address()

	iw.println("BEGIN:VCALENDAR")
	iw.println("VERSION:2.0")
	iw.printf("PRODID:%s\n", ICSProductID)
	iw.println("METHOD:PUBLISH")
	iw.printf("X-WR-CALNAME:Abfuhrtermine %s\n", address.String())
	iw.printf("X-WR-TIMEZONE:%s\n", ICSTimezone)
	iw.println("CALSCALE:GREGORIAN")
	iw.printf("X-PUBLISHED-TTL:%s\n", duration.FromTimeDuration(opts.ttl()).String())

	for _, entry := range schedule.Entries {
		writeEvent(iw, schedule, entry, opts)
		iw.println("END:VEVENT")
	}

	iw.println("END:VCALENDAR")
	return iw.err
}

func writeEvent(iw *icsWriter, schedule *collection.Schedule, entry collection.Collection, opts ICSOptions) {
	address := schedule.Address()

	// UIDs must be stable across feed refreshes, otherwise calendar apps
	// duplicate the events.
	uid := fmt.Sprintf("%s-%s-%s@%s", entry.Date.String(), slug.Make(string(entry.WasteType)), address.Key(), opts.uidHost())

	iw.println("BEGIN:VEVENT")
	iw.printf("UID:%s\n", uid)
	iw.printf("DTSTAMP:%s\n", time.Unix(schedule.FetchedAt, 0).UTC().Format(dateStampLayout))
	iw.printf("DTSTART;VALUE=DATE:%s\n", entry.Date.Format(dateValueLayout))
	iw.printf("DTEND;VALUE=DATE:%s\n", entry.Date.AddDate(0, 0, 1).Format(dateValueLayout))
	iw.printf("SUMMARY:%s\n", entry.WasteType)
	iw.printf("DESCRIPTION:Abfuhr %s in %s\n", entry.WasteType, address.String())
	iw.printf("LOCATION:%s\n", address.String())
}

// writeAlarm emits a VALARM block. The trigger is relative to the event
// start, which for an all-day event is midnight of the pickup day.
func writeAlarm(iw *icsWriter, entry collection.Collection, reminder Reminder) {
	parts := strings.Split(reminder.Time, ":")
	if len(parts) != 2 {
		return
	}

	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return
	}

	alarmDate := entry.Date.AddDate(0, 0, -reminder.DaysBefore)
	alarmDateTime := time.Date(alarmDate.Year(), alarmDate.Month(), alarmDate.Day(), hour, minute, 0, 0, time.UTC)
	offset := alarmDateTime.Sub(entry.Date.Time)

	totalMinutes := int(offset.Minutes())
	isNegative := totalMinutes < 0
	if isNegative {
		totalMinutes = -totalMinutes
	}

	days := totalMinutes / (24 * 60)
	remainingMinutes := totalMinutes % (24 * 60)
	hours := remainingMinutes / 60
	minutes := remainingMinutes % 60

	trigger := fmt.Sprintf("P%dDT%dH%dM", days, hours, minutes)
	if isNegative {
		trigger = "-" + trigger
	}

	iw.println("BEGIN:VALARM")
	iw.println("ACTION:DISPLAY")
	iw.printf("DESCRIPTION:Erinnerung: %s\n", entry.WasteType)
	iw.printf("TRIGGER:%s\n", trigger)
	iw.println("END:VALARM")
}
