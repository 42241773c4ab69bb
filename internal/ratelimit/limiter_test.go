package ratelimit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/surveyhub/internal/kvstore"
	"github.com/BradenHooton/surveyhub/internal/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLimiter(max int, window time.Duration, clock *fakeClock) (*ratelimit.Limiter, *kvstore.MemoryStore[ratelimit.Record]) {
	store := kvstore.NewMemoryStore[ratelimit.Record]()
	l := ratelimit.New(
		ratelimit.Config{Name: "test", Window: window, MaxRequests: max},
		store, discardLogger(), ratelimit.WithClock(clock.Now),
	)
	return l, store
}

func TestLimiter_AllowsUpToMaxThenRejects(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, _ := newLimiter(3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		d := l.Allow(ctx, "1.2.3.4")
		require.True(t, d.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3-(i+1), d.Remaining)
	}

	d := l.Allow(ctx, "1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 60, d.RetryAfter)
	assert.LessOrEqual(t, d.RetryAfter, 60)
}

func TestLimiter_RejectionDoesNotExtendWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, store := newLimiter(1, time.Minute, clock)

	require.True(t, l.Allow(ctx, "ip").Allowed)
	clock.Advance(20 * time.Second)
	d := l.Allow(ctx, "ip")
	assert.False(t, d.Allowed)
	assert.Equal(t, 40, d.RetryAfter)

	rec, ok, _ := store.Get(ctx, "ip")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Count, "rejected requests are not counted")
}

func TestLimiter_RetryAfterRoundsUp(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, _ := newLimiter(1, time.Minute, clock)

	l.Allow(ctx, "ip")
	clock.Advance(59*time.Second + 500*time.Millisecond)
	assert.Equal(t, 1, l.Allow(ctx, "ip").RetryAfter)
}

func TestLimiter_NewWindowAfterReset(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, _ := newLimiter(2, time.Minute, clock)

	l.Allow(ctx, "ip")
	l.Allow(ctx, "ip")
	assert.False(t, l.Allow(ctx, "ip").Allowed)

	// still inside the window at exactly resetAt
	clock.Advance(time.Minute)
	assert.False(t, l.Allow(ctx, "ip").Allowed)

	clock.Advance(time.Millisecond)
	d := l.Allow(ctx, "ip")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, _ := newLimiter(1, time.Minute, clock)

	assert.True(t, l.Allow(ctx, "a").Allowed)
	assert.False(t, l.Allow(ctx, "a").Allowed)
	assert.True(t, l.Allow(ctx, "b").Allowed)
}

func TestLimiter_SweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, store := newLimiter(5, time.Minute, clock)

	l.Allow(ctx, "old")
	clock.Advance(45 * time.Second)
	l.Allow(ctx, "fresh")
	clock.Advance(30 * time.Second)

	removed, err := l.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (ratelimit.Record, bool, error) {
	return ratelimit.Record{}, false, errors.New("store down")
}
func (failingStore) Set(context.Context, string, ratelimit.Record) error {
	return errors.New("store down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("store down") }
func (failingStore) Sweep(context.Context, func(ratelimit.Record) bool) (int, error) {
	return 0, errors.New("store down")
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{Name: "test", Window: time.Minute, MaxRequests: 1}, failingStore{}, discardLogger())

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(context.Background(), "ip").Allowed)
	}
}

func TestLimiter_RedisBackedSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cfg := ratelimit.Config{Name: "responses", Window: time.Minute, MaxRequests: 2}
	a := ratelimit.New(cfg, kvstore.NewRedisStore(client, "rl:", ratelimit.RecordTTL), discardLogger())
	b := ratelimit.New(cfg, kvstore.NewRedisStore(client, "rl:", ratelimit.RecordTTL), discardLogger())

	assert.True(t, a.Allow(ctx, "ip").Allowed)
	assert.True(t, b.Allow(ctx, "ip").Allowed)
	assert.False(t, a.Allow(ctx, "ip").Allowed)
	assert.True(t, mr.TTL("rl:ip") > 0)
}

func TestMiddleware_Returns429WithRetryAfter(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, _ := newLimiter(1, 30*time.Second, clock)

	handler := l.Middleware(ratelimit.ByClientIP(nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/responses", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	first := send()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "30", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"retryAfter":30`)
	assert.Contains(t, second.Body.String(), `"rate_limit_exceeded"`)
}
