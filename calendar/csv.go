package calendar

import (
	"fmt"
	"io"

	"github.com/timgluz/abfuhrplan/collection"
)

// WriteCSV renders the schedule as CSV rows, one pickup per line.
func WriteCSV(w io.Writer, schedule *collection.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule cannot be nil")
	}

	if _, err := fmt.Fprintln(w, "Datum,Abfallart,Icon"); err != nil {
		return err
	}

	for _, entry := range schedule.Entries {
		if _, err := fmt.Fprintf(w, "%s,%s,%s\n", entry.Date.String(), entry.WasteType, entry.Icon); err != nil {
			return err
		}
	}

	return nil
}
