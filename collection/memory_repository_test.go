package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(newTestLogger())
	address := NewAddress("Bahnhofspassage", "2")
	schedule := newTestSchedule(t, address, []string{"2026-01-02", "2026-01-09"})

	assert.True(t, repo.IsReady())
	assert.False(t, repo.Has(ctx, address))

	_, err := repo.GetByAddress(ctx, address)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	assert.NoError(t, repo.Create(ctx, schedule))
	assert.True(t, repo.Has(ctx, address))

	stored, err := repo.GetByAddress(ctx, address)
	assert.NoError(t, err)
	assert.Equal(t, schedule, stored)

	assert.NoError(t, repo.Delete(ctx, address))
	assert.False(t, repo.Has(ctx, address))
}

func TestMemoryRepository_CreateNil(t *testing.T) {
	repo := NewMemoryRepository(newTestLogger())

	assert.Error(t, repo.Create(context.Background(), nil))
}

func TestMemoryRepository_CloseDropsData(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(newTestLogger())
	address := NewAddress("Bahnhofspassage", "2")

	assert.NoError(t, repo.Create(ctx, newTestSchedule(t, address, []string{"2026-01-02"})))
	assert.NoError(t, repo.Close())
	assert.False(t, repo.Has(ctx, address))
}
