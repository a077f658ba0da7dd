package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type failingCounterStore struct {
	*MemoryCounterStore
	failIncr bool
	failGet  bool
	failSet  bool
}

func (s *failingCounterStore) Set(ctx context.Context, counts map[Category]int64) error {
	if s.failSet {
		return errors.New("redis unavailable")
	}
	return s.MemoryCounterStore.Set(ctx, counts)
}

func (s *failingCounterStore) Get(ctx context.Context) (map[Category]int64, error) {
	if s.failGet {
		return nil, errors.New("redis unavailable")
	}
	return s.MemoryCounterStore.Get(ctx)
}

func (s *failingCounterStore) IncrBy(ctx context.Context, category Category, delta int64) (int64, error) {
	if s.failIncr {
		return 0, errors.New("redis unavailable")
	}
	return s.MemoryCounterStore.IncrBy(ctx, category, delta)
}

func TestCounter_CountsFillsEveryCategoryAndClamps(t *testing.T) {
	store := NewMemoryCounterStore()
	counter := NewCounter(store, testLogger())
	ctx := context.Background()

	_, _ = store.IncrBy(ctx, CategoryTouristSpots, 2)
	_, _ = store.IncrBy(ctx, CategoryEvents, -3)
	_, _ = store.IncrBy(ctx, Category("unknown"), 7)

	counts, err := counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{
		CategoryTouristSpots:   2,
		CategoryBusinesses:     0,
		CategoryAccommodations: 0,
		CategoryEvents:         0,
	}, counts)
}

func TestCounter_AdjustUndoRunsOnce(t *testing.T) {
	store := NewMemoryCounterStore()
	counter := NewCounter(store, testLogger())
	ctx := context.Background()
	counter.Reconcile(ctx, Counts{CategoryTouristSpots: 5})

	undo := counter.Adjust(ctx, CategoryTouristSpots, -1)
	counts, err := counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts[CategoryTouristSpots])

	undo()
	undo()
	counts, err = counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, counts[CategoryTouristSpots])
}

func TestCounter_AdjustFailureReturnsNoopUndo(t *testing.T) {
	store := &failingCounterStore{MemoryCounterStore: NewMemoryCounterStore(), failIncr: true}
	counter := NewCounter(store, testLogger())
	ctx := context.Background()
	counter.Reconcile(ctx, Counts{CategoryTouristSpots: 3})

	undo := counter.Adjust(ctx, CategoryTouristSpots, -1)
	store.failIncr = false
	undo()

	counts, err := counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[CategoryTouristSpots])
}

func TestCounter_ReconcileOverwrites(t *testing.T) {
	store := NewMemoryCounterStore()
	counter := NewCounter(store, testLogger())
	ctx := context.Background()

	_ = counter.Adjust(ctx, CategoryTouristSpots, -4)
	counter.Reconcile(ctx, Counts{CategoryTouristSpots: 2, CategoryEvents: 0})

	stored, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Category]int64{CategoryTouristSpots: 2, CategoryEvents: 0}, stored)
}

func TestCounter_ReconcileFailureKeepsPreviousTotals(t *testing.T) {
	store := &failingCounterStore{MemoryCounterStore: NewMemoryCounterStore()}
	counter := NewCounter(store, testLogger())
	ctx := context.Background()
	counter.Reconcile(ctx, Counts{CategoryTouristSpots: 4})

	store.failSet = true
	counter.Reconcile(ctx, Counts{CategoryTouristSpots: 1})

	counts, err := counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts[CategoryTouristSpots])
}

func TestCounter_CountsFetchFailure(t *testing.T) {
	store := &failingCounterStore{MemoryCounterStore: NewMemoryCounterStore(), failGet: true}
	counter := NewCounter(store, testLogger())

	_, err := counter.Counts(context.Background())
	assert.True(t, IsFetchFailure(err))
}
