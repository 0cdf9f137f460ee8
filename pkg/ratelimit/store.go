package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts requests per window.
type Store interface {
	// Incr adds one request to the window starting at start and returns
	// the new count. ttl bounds how long the counter is kept.
	Incr(ctx context.Context, start time.Time, ttl time.Duration) (int, error)

	// Count returns the requests counted in the window starting at start.
	Count(ctx context.Context, start time.Time) (int, error)
}

// RedisStore keeps window counters in Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Incr increments the window counter and refreshes its expiry atomically.
func (s *RedisStore) Incr(ctx context.Context, start time.Time, ttl time.Duration) (int, error) {
	key := WindowKey(start)

	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment window counter in redis: %w", err)
	}

	return int(incr.Val()), nil
}

// Count reads the window counter. A missing key counts as zero.
func (s *RedisStore) Count(ctx context.Context, start time.Time) (int, error) {
	n, err := s.redis.Get(ctx, WindowKey(start)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get window counter: %w", err)
	}
	return n, nil
}

// MemoryStore keeps window counters in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[int64]int
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[int64]int)}
}

// Incr increments the window counter and drops older windows.
func (s *MemoryStore) Incr(_ context.Context, start time.Time, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := start.Unix()
	for k := range s.windows {
		if k < key {
			delete(s.windows, k)
		}
	}
	s.windows[key]++
	return s.windows[key], nil
}

// Count returns the window counter.
func (s *MemoryStore) Count(_ context.Context, start time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[start.Unix()], nil
}
