package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spinframework/spin-go-sdk/v2/kv"
)

var (
	ErrKVStoreNotAvailable = errors.New("KV store not available")
	ErrScheduleNotFound    = errors.New("schedule not found")
)

type Repository interface {
	GetByAddress(ctx context.Context, address Address) (*Schedule, error)
	Create(ctx context.Context, schedule *Schedule) error
	Delete(ctx context.Context, address Address) error
	Has(ctx context.Context, address Address) bool

	IsReady() bool
	Close() error
}

// SpinKVRepository stores fetched schedules in a Spin KV store, one JSON
// blob per address key.
type SpinKVRepository struct {
	db     *kv.Store
	logger *slog.Logger
}

func NewSpinKVRepository(storeName string, logger *slog.Logger) (Repository, error) {
	db, err := kv.OpenStore(storeName)
	if err != nil {
		logger.Error("Failed to open Spin KV store", "error", err)
		return nil, ErrKVStoreNotAvailable
	}

	return &SpinKVRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *SpinKVRepository) IsReady() bool {
	if r.logger == nil {
		fmt.Println("Logger of SpinKVRepository is not initialized")
		return false
	}

	if r.db == nil {
		r.logger.Error("Spin KV store is not initialized")
		return false
	}

	r.logger.Debug("Spin KV store is ready")
	return true
}

func (r *SpinKVRepository) Has(ctx context.Context, address Address) bool {
	defer ctx.Done()

	if !address.IsValid() {
		r.logger.Warn("Incomplete address provided, cannot check existence")
		return false
	}

	if !r.IsReady() {
		r.logger.Error("Spin KV store is not ready, cannot check existence")
		return false
	}

	ok, err := r.db.Exists(address.Key())
	if err != nil {
		r.logger.Error("Failed to check existence of schedule in Spin KV", "key", address.Key(), "error", err)
		return false
	}

	return ok
}

func (r *SpinKVRepository) GetByAddress(ctx context.Context, address Address) (*Schedule, error) {
	defer ctx.Done()

	jsonBlob, err := r.getKey(ctx, address.Key())
	if err != nil {
		return nil, err
	}

	schedule := &Schedule{}
	if err := json.Unmarshal(jsonBlob, schedule); err != nil {
		r.logger.Error("Failed to unmarshal schedule", "key", address.Key(), "error", err)
		return nil, err
	}

	return schedule, nil
}

func (r *SpinKVRepository) Create(ctx context.Context, schedule *Schedule) error {
	if schedule == nil {
		return errors.New("schedule cannot be nil")
	}

	jsonBlob, err := json.Marshal(schedule)
	if err != nil {
		r.logger.Error("Failed to marshal schedule", "error", err)
		return err
	}

	if err := r.setKey(ctx, schedule.Address().Key(), jsonBlob); err != nil {
		r.logger.Error("Failed to add schedule to Spin KV", "error", err)
		return err
	}

	r.logger.Debug("Schedule added to Spin KV", "key", schedule.Address().Key())
	return nil
}

func (r *SpinKVRepository) Delete(ctx context.Context, address Address) error {
	defer ctx.Done()

	if !address.IsValid() {
		return errors.New("address is incomplete")
	}

	if !r.IsReady() {
		return ErrKVStoreNotAvailable
	}

	if err := r.db.Delete(address.Key()); err != nil {
		r.logger.Error("Failed to delete schedule from Spin KV", "key", address.Key(), "error", err)
		return err
	}

	r.logger.Info("Schedule deleted from Spin KV", "key", address.Key())
	return nil
}

func (r *SpinKVRepository) setKey(ctx context.Context, key string, data []byte) error {
	defer ctx.Done()

	if key == "" || data == nil {
		return errors.New("key and data cannot be empty")
	}

	if !r.IsReady() {
		return ErrKVStoreNotAvailable
	}

	r.logger.Debug("Storing blob in Spin KV", "key", key)
	if err := r.db.Set(key, data); err != nil {
		r.logger.Error("Failed to store blob in Spin KV", "error", err)
		return err
	}

	return nil
}

func (r *SpinKVRepository) getKey(ctx context.Context, key string) ([]byte, error) {
	defer ctx.Done()

	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	if !r.IsReady() {
		return nil, ErrKVStoreNotAvailable
	}

	r.logger.Debug("Retrieving blob from Spin KV", "key", key)
	data, err := r.db.Get(key)
	if err != nil {
		r.logger.Error("Failed to retrieve blob from Spin KV", "key", key, "error", err)
		return nil, err
	}

	return data, nil
}

func (r *SpinKVRepository) Close() error {
	if r.db == nil {
		r.logger.Warn("Spin KV store is nil, nothing to close")
		return nil
	}

	r.db.Close()
	r.logger.Info("Spin KV store closed successfully")
	return nil
}
