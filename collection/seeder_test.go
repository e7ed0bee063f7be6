package collection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timgluz/abfuhrplan/street"
)

type seedProvider struct {
	schedules map[string]*Schedule
	err       error
	calls     int
}

func (p *seedProvider) GetSchedule(ctx context.Context, address Address) (*Schedule, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}

	return p.schedules[address.Key()], nil
}

func (p *seedProvider) GetStreets(ctx context.Context) (*street.Directory, error) {
	return street.NewDirectory(nil), nil
}

func (p *seedProvider) IsReady() bool { return true }

func TestScheduleSeederSeed(t *testing.T) {
	ctx := context.Background()
	first := NewAddress("Bahnhofspassage", "2")
	second := NewAddress("Zum Eichholz", "1")

	provider := &seedProvider{schedules: map[string]*Schedule{
		first.Key():  newTestSchedule(t, first, []string{"2026-01-02"}),
		second.Key(): newTestSchedule(t, second, []string{"2026-01-09"}),
	}}
	repo := NewMemoryRepository(newTestLogger())
	seeder := NewScheduleSeeder(newTestLogger())

	assert.NoError(t, seeder.Seed(ctx, provider, repo, []Address{first, second}))
	assert.True(t, repo.Has(ctx, first))
	assert.True(t, repo.Has(ctx, second))
	assert.Equal(t, 2, provider.calls)
}

func TestScheduleSeederSeed_SkipsEmptySchedules(t *testing.T) {
	ctx := context.Background()
	address := NewAddress("Bahnhofspassage", "2")

	provider := &seedProvider{schedules: map[string]*Schedule{
		address.Key(): NewSchedule(address, nil),
	}}
	repo := NewMemoryRepository(newTestLogger())
	seeder := NewScheduleSeeder(newTestLogger())

	assert.NoError(t, seeder.Seed(ctx, provider, repo, []Address{address}))
	assert.False(t, repo.Has(ctx, address), "empty schedules are not cached")
}

func TestScheduleSeederSeed_ProviderError(t *testing.T) {
	errFetch := fmt.Errorf("upstream is down")
	provider := &seedProvider{err: errFetch}
	repo := NewMemoryRepository(newTestLogger())
	seeder := NewScheduleSeeder(newTestLogger())

	err := seeder.Seed(context.Background(), provider, repo, []Address{NewAddress("Bahnhofspassage", "2")})

	assert.ErrorIs(t, err, errFetch)
}

func TestScheduleSeederSeed_NoAddresses(t *testing.T) {
	provider := &seedProvider{}
	repo := NewMemoryRepository(newTestLogger())
	seeder := NewScheduleSeeder(newTestLogger())

	assert.NoError(t, seeder.Seed(context.Background(), provider, repo, nil))
	assert.Zero(t, provider.calls)
}
