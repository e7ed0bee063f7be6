package collection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// MemoryRepository keeps schedules in process memory. It backs the local
// development server and tests, where no Spin KV store exists.
type MemoryRepository struct {
	mu        sync.RWMutex
	schedules map[string]*Schedule

	logger *slog.Logger
}

func NewMemoryRepository(logger *slog.Logger) *MemoryRepository {
	return &MemoryRepository{
		schedules: make(map[string]*Schedule),
		logger:    logger,
	}
}

func (r *MemoryRepository) IsReady() bool {
	return r.schedules != nil
}

func (r *MemoryRepository) Has(ctx context.Context, address Address) bool {
	defer ctx.Done()

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.schedules[address.Key()]
	return ok
}

func (r *MemoryRepository) GetByAddress(ctx context.Context, address Address) (*Schedule, error) {
	defer ctx.Done()

	r.mu.RLock()
	defer r.mu.RUnlock()

	schedule, ok := r.schedules[address.Key()]
	if !ok {
		return nil, ErrScheduleNotFound
	}

	return schedule, nil
}

func (r *MemoryRepository) Create(ctx context.Context, schedule *Schedule) error {
	defer ctx.Done()

	if schedule == nil {
		return errors.New("schedule cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedules[schedule.Address().Key()] = schedule
	if r.logger != nil {
		r.logger.Debug("Schedule stored in memory", "key", schedule.Address().Key())
	}

	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, address Address) error {
	defer ctx.Done()

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.schedules, address.Key())
	return nil
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedules = make(map[string]*Schedule)
	return nil
}
