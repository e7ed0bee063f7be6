package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/timgluz/abfuhrplan/collection"
	"github.com/timgluz/abfuhrplan/history"
)

// ScheduleCollector fetches the current schedule for one address, replaces
// the cached copy and appends the dates to the pickup history.
type ScheduleCollector struct {
	scheduleRepo collection.Repository
	historyRepo  history.Repository
	provider     collection.Provider

	logger *slog.Logger
}

func NewScheduleCollector(scheduleRepo collection.Repository,
	historyRepo history.Repository,
	provider collection.Provider,
	logger *slog.Logger,
) *ScheduleCollector {
	return &ScheduleCollector{scheduleRepo, historyRepo, provider, logger}
}

func (t *ScheduleCollector) Run(ctx context.Context, address collection.Address) error {
	defer ctx.Done()
	t.logger.Info("Collecting waste schedule", "street", address.Street, "number", address.Number)

	if !address.IsValid() {
		return fmt.Errorf("address is incomplete: %q", address.String())
	}

	schedule, err := t.provider.GetSchedule(ctx, address)
	if err != nil {
		t.logger.Error("Failed to fetch schedule from provider", "error", err)
		return err
	}

	if schedule == nil || schedule.IsEmpty() {
		t.logger.Warn("No collection entries found for address", "street", address.Street, "number", address.Number)
		return nil
	}

	t.logger.Debug("Replacing cached schedule", "key", address.Key())
	if t.scheduleRepo.Has(ctx, address) {
		if err := t.scheduleRepo.Delete(ctx, address); err != nil {
			t.logger.Error("Failed to delete cached schedule", "error", err)
			return err
		}
	}

	if err := t.scheduleRepo.Create(ctx, schedule); err != nil {
		t.logger.Error("Failed to cache schedule", "error", err)
		return err
	}

	t.logger.Debug("Appending schedule to history", "entries", len(schedule.Entries))
	if err := t.historyRepo.AddSchedule(ctx, schedule); err != nil {
		t.logger.Error("Failed to add schedule to history", "error", err)
		return err
	}

	t.logger.Info("Successfully collected and stored schedule", "street", address.Street, "number", address.Number, "entries", len(schedule.Entries))
	return nil
}
