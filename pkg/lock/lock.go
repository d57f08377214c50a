package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is a redis-backed slot lock. Acquire is a single atomic SET NX EX
// attempt; there is no spin-wait. If a holder crashes before Release, the
// key self-expires after the TTL, so the TTL must exceed the critical
// section's expected duration by a wide margin.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// SlotKey partitions the lock space per (table, slot-start) so unrelated
// slots never contend.
func SlotKey(tableID string, slotStart time.Time) string {
	return fmt.Sprintf("table:%s:%s", tableID, slotStart.UTC().Format(time.RFC3339))
}

// Acquire returns true only if the key did not already exist.
func (s *Store) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, "lock:"+key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the key unconditionally.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, "lock:"+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// ErrNotAcquired is returned by WithLock when another holder owns the key.
var ErrNotAcquired = fmt.Errorf("lock not acquired")

// WithLock runs fn inside the lock and releases on every exit path,
// including panics. A failed release is tolerated; the TTL bounds the leak.
func (s *Store) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ok, err := s.Acquire(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() { _ = s.Release(ctx, key) }()
	return fn(ctx)
}
