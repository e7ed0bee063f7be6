package collection

import (
	"context"
	"log/slog"
)

type Seeder interface {
	Seed(ctx context.Context, provider Provider, repository Repository, addresses []Address) error
}

// ScheduleSeeder warms a schedule repository by fetching the current
// schedule for every given address. It is used at startup so the first
// request does not have to wait for the upstream API.
type ScheduleSeeder struct {
	logger *slog.Logger
}

func NewScheduleSeeder(logger *slog.Logger) *ScheduleSeeder {
	return &ScheduleSeeder{
		logger: logger,
	}
}

func (s *ScheduleSeeder) Seed(ctx context.Context, provider Provider, repository Repository, addresses []Address) error {
	if !provider.IsReady() {
		return ErrProviderNotReady
	}

	if !repository.IsReady() {
		return ErrKVStoreNotAvailable
	}

	if len(addresses) == 0 {
		s.logger.Info("No addresses configured to seed")
		return nil
	}

	s.logger.Info("Seeding schedules", "count", len(addresses))
	for _, address := range addresses {
		schedule, err := provider.GetSchedule(ctx, address)
		if err != nil {
			s.logger.Error("Failed to fetch schedule for seeding", "key", address.Key(), "error", err)
			return err
		}

		if schedule == nil || schedule.IsEmpty() {
			s.logger.Warn("No entries for address, skipping", "key", address.Key())
			continue
		}

		if repository.Has(ctx, address) {
			if err := repository.Delete(ctx, address); err != nil {
				s.logger.Error("Failed to delete existing schedule", "key", address.Key(), "error", err)
				return err
			}
		}

		if err := repository.Create(ctx, schedule); err != nil {
			s.logger.Error("Failed to create schedule in repository", "key", address.Key(), "error", err)
			return err
		}
		s.logger.Info("Schedule seeded successfully", "key", address.Key())
	}
	s.logger.Info("Seeding completed successfully")
	return nil
}
