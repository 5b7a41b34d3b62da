package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewIdempotencyStore(rdb, ttl), mr
}

func TestTryLockOnce(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t, time.Minute)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "checkout:u1", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, "checkout:u1", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.TryLock(ctx, "checkout:u2", "k1")
	require.NoError(t, err)
	assert.True(t, ok, "scopes are independent")

	require.NoError(t, s.Release(ctx, "checkout:u1", "k1"))
	ok, err = s.TryLock(ctx, "checkout:u1", "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRememberRecall(t *testing.T) {
	t.Parallel()
	s, mr := newStore(t, time.Minute)
	ctx := context.Background()

	_, found, err := s.Recall(ctx, "checkout:u1", "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remember(ctx, "checkout:u1", "k1", `{"id":"o1"}`))
	val, found, err := s.Recall(ctx, "checkout:u1", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":"o1"}`, val)

	mr.FastForward(2 * time.Minute)
	_, found, err = s.Recall(ctx, "checkout:u1", "k1")
	require.NoError(t, err)
	assert.False(t, found, "results expire with the ttl")
}

func TestPing(t *testing.T) {
	t.Parallel()
	s, mr := newStore(t, time.Minute)

	require.NoError(t, s.Ping(context.Background()))
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}
