package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func TestAcquireIsSingleAttempt(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second holder loses immediately; there is no spin-wait.
	ok, err = s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unrelated keys never contend.
	ok, err = s.Acquire(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseFreesKey(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Release(ctx, "k1"))

	ok, err = s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	ttl := 30 * time.Second
	s, mr := newTestStore(t, ttl)
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	// Holder crashes without releasing; before the TTL the slot stays held.
	mr.FastForward(ttl - time.Second)
	ok, err = s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must not block new acquisition")
}

func TestWithLockReleasesOnError(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	boom := errors.New("ledger down")
	err := s.WithLock(ctx, "k1", func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	ok, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released on the error path")
}

func TestWithLockContention(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	ran := false
	err = s.WithLock(ctx, "k1", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, ErrNotAcquired)
	assert.False(t, ran)
}

func TestSlotKeyNormalizesToUTC(t *testing.T) {
	bkk := time.FixedZone("ICT", 7*3600)
	local := time.Date(2026, 9, 2, 19, 0, 0, 0, bkk)
	assert.Equal(t, "table:t1:2026-09-02T12:00:00Z", SlotKey("t1", local))
}
