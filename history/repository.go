package history

import (
	"context"

	"github.com/timgluz/abfuhrplan/collection"
)

// Entry is one recorded pickup for an address. The history keeps every date
// a collector run has ever seen, also the ones the upstream API no longer
// publishes.
type Entry struct {
	ID          int64                `json:"id"`
	Street      string               `json:"street"`
	Number      string               `json:"number"`
	WasteType   collection.WasteType `json:"waste_type"`
	CollectedOn collection.Date      `json:"collected_on"`
}

type Repository interface {
	AddSchedule(ctx context.Context, schedule *collection.Schedule) error
	GetEntries(ctx context.Context, address collection.Address, period collection.Period) ([]Entry, error)

	// IsReady checks if the repository is ready for operations.
	IsReady() bool
	Close() error
}
