package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/pkg/moderation"
)

const defaultCounterKey = "fern:moderation:counts"

// CounterStore keeps the per-category pending totals in one hash, so every
// replica of the service shows the same dashboard numbers.
type CounterStore struct {
	rdb redis.Cmdable
	key string
}

// NewCounterStore creates a counter store on the hash at key
func NewCounterStore(client *Client, key string) *CounterStore {
	return NewCounterStoreWithCmdable(client.rdb, key)
}

func NewCounterStoreWithCmdable(rdb redis.Cmdable, key string) *CounterStore {
	if key == "" {
		key = defaultCounterKey
	}
	return &CounterStore{rdb: rdb, key: key}
}

func (s *CounterStore) Key() string {
	return s.key
}

// Get reads every category total
func (s *CounterStore) Get(ctx context.Context) (map[moderation.Category]int64, error) {
	values, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(values), nil
}

// IncrBy adds delta to one category
func (s *CounterStore) IncrBy(ctx context.Context, category moderation.Category, delta int64) (int64, error) {
	return s.rdb.HIncrBy(ctx, s.key, string(category), delta).Result()
}

// Set replaces the whole hash atomically.
func (s *CounterStore) Set(ctx context.Context, counts map[moderation.Category]int64) error {
	fields := make(map[string]any, len(counts))
	for category, n := range counts {
		fields[string(category)] = n
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	return err
}

// parseCounts skips fields that are not integers.
func parseCounts(values map[string]string) map[moderation.Category]int64 {
	counts := make(map[moderation.Category]int64, len(values))
	for field, raw := range values {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		counts[moderation.Category(field)] = n
	}
	return counts
}
