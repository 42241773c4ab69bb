package kvstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/surveyhub/internal/kvstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClient(t)
	store := kvstore.NewRedisStore[entry](client, "test:", nil)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "a", entry{Count: 3}))
	got, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Count)

	require.NoError(t, store.Delete(ctx, "a"))
	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_AppliesTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisClient(t)
	store := kvstore.NewRedisStore[entry](client, "ttl:", func(entry) time.Duration { return time.Minute })

	require.NoError(t, store.Set(ctx, "a", entry{Count: 1}))
	assert.Equal(t, time.Minute, mr.TTL("ttl:a"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_SweepOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisClient(t)
	store := kvstore.NewRedisStore[entry](client, "sweep:", nil)

	require.NoError(t, store.Set(ctx, "old", entry{Count: 0}))
	require.NoError(t, store.Set(ctx, "new", entry{Count: 5}))
	require.NoError(t, mr.Set("other:key", "untouched"))

	removed, err := store.Sweep(ctx, func(e entry) bool { return e.Count == 0 })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, mr.Exists("sweep:new"))
	assert.False(t, mr.Exists("sweep:old"))
	assert.True(t, mr.Exists("other:key"))
}
