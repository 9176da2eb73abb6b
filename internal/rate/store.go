package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps the shared Redis client with the counter operations the
// limiter and the admin reset path need. Increments are linearized per key
// by Redis itself.
type Store struct {
	redis redis.UniversalClient
}

// NewStore creates a counter [Store] backed by the given Redis client.
func NewStore(redisClient redis.UniversalClient) *Store {
	return &Store{redis: redisClient}
}

// Incr atomically creates key with value 1 and the given TTL, or
// increments it, returning the new value. The TTL is set only on creation;
// later increments never extend the window.
func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: TTL only for the first hit in the window.
	if count == 1 {
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Sum reads every key in one MGET and returns the total. Missing or
// expired keys count as zero.
func (s *Store) Sum(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var total int64
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			continue
		}
		total += n
	}
	return total, nil
}

// Get returns the current value of a single key, or zero when absent.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// DeleteByPattern scans for keys matching the glob pattern and deletes
// them in batches. The admin reset path uses it for account-scope keys,
// which it cannot enumerate (any username may have failed from an IP).
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) error {
	const batchSize = 200

	iter := s.redis.Scan(ctx, 0, pattern, batchSize).Iterator()
	batch := make([]string, 0, batchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			if err := s.redis.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(batch) > 0 {
		if err := s.redis.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// DeleteMany removes the given keys in one round trip. Missing keys are
// ignored; the caller only needs "no counter survives".
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
