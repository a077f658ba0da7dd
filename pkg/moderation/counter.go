package moderation

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"
)

// CounterStore holds the per-category pending totals.
type CounterStore interface {
	Get(ctx context.Context) (map[Category]int64, error)
	IncrBy(ctx context.Context, category Category, delta int64) (int64, error)
	Set(ctx context.Context, counts map[Category]int64) error
}

// Counter keeps dashboard totals between queue builds. Adjustments are
// optimistic and the next authoritative build overwrites them.
type Counter struct {
	store  CounterStore
	logger ectologger.Logger
}

// NewCounter creates a counter over store
func NewCounter(store CounterStore, logger ectologger.Logger) *Counter {
	return &Counter{
		store:  store,
		logger: logger,
	}
}

// Counts returns every category, clamped at zero.
func (c *Counter) Counts(ctx context.Context) (Counts, error) {
	stored, err := c.store.Get(ctx)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to read category counts")
		return nil, FetchFailure("category counts", err)
	}

	counts := zeroCounts()
	for category, n := range stored {
		if _, ok := counts[category]; !ok {
			continue
		}
		if n > 0 {
			counts[category] = int(n)
		}
	}
	return counts, nil
}

// Adjust applies delta to category and returns a func that reverts it. The
// revert runs at most once. Store failures are logged, not returned.
func (c *Counter) Adjust(ctx context.Context, category Category, delta int) (undo func()) {
	if _, err := c.store.IncrBy(ctx, category, int64(delta)); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("category", category).Warn("Failed to adjust category count")
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := c.store.IncrBy(context.WithoutCancel(ctx), category, int64(-delta)); err != nil {
				c.logger.WithContext(ctx).WithError(err).WithField("category", category).Warn("Failed to revert category count")
			}
		})
	}
}

// Reconcile overwrites the stored totals with counts from a queue build. A
// failed write is logged and the previous totals stay until the next build.
func (c *Counter) Reconcile(ctx context.Context, counts Counts) {
	stored := make(map[Category]int64, len(counts))
	for category, n := range counts {
		stored[category] = int64(n)
	}

	if err := c.store.Set(ctx, stored); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to reconcile category counts")
	}
}

// MemoryCounterStore is a process-local CounterStore.
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[Category]int64
}

// NewMemoryCounterStore creates an empty counter store
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counts: make(map[Category]int64)}
}

func (s *MemoryCounterStore) Get(_ context.Context) (map[Category]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Category]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryCounterStore) IncrBy(_ context.Context, category Category, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[category] += delta
	return s.counts[category], nil
}

func (s *MemoryCounterStore) Set(_ context.Context, counts map[Category]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts = make(map[Category]int64, len(counts))
	for k, v := range counts {
		s.counts[k] = v
	}
	return nil
}
