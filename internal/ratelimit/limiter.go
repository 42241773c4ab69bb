// Package ratelimit implements a fixed-window request limiter keyed by an
// arbitrary identity (usually the client IP).
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/BradenHooton/surveyhub/internal/kvstore"
)

// Record is the per-identity window state.
type Record struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"resetAt"`
}

// Decision is the outcome of a single Allow call.
// RetryAfter is in whole seconds and is only set when the request is rejected.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int
	ResetAt    time.Time
}

type Config struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

type Limiter struct {
	cfg    Config
	store  kvstore.Store[Record]
	logger *slog.Logger
	now    func() time.Time

	// serializes the read-modify-write below within one process
	mu sync.Mutex
}

type Option func(*Limiter)

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, store kvstore.Store[Record], logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:    cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordTTL is the Redis expiry for a record: the remainder of its window
func RecordTTL(r Record) time.Duration {
	return time.Until(r.ResetAt) + time.Second
}

// Allow consumes one request for identity. Store failures allow the request.
func (l *Limiter) Allow(ctx context.Context, identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	limit := l.cfg.MaxRequests

	rec, found, err := l.store.Get(ctx, identity)
	if err != nil {
		l.logger.Warn("rate limit store read failed, allowing request",
			slog.String("limiter", l.cfg.Name), slog.Any("error", err))
		return Decision{Allowed: true, Limit: limit, Remaining: limit - 1}
	}

	if !found || now.After(rec.ResetAt) {
		rec = Record{Count: 1, ResetAt: now.Add(l.cfg.Window)}
		l.save(ctx, identity, rec)
		return Decision{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: rec.ResetAt}
	}

	if rec.Count >= limit {
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: retryAfterSeconds(rec.ResetAt.Sub(now)),
			ResetAt:    rec.ResetAt,
		}
	}

	rec.Count++
	l.save(ctx, identity, rec)
	return Decision{Allowed: true, Limit: limit, Remaining: limit - rec.Count, ResetAt: rec.ResetAt}
}

func (l *Limiter) save(ctx context.Context, identity string, rec Record) {
	if err := l.store.Set(ctx, identity, rec); err != nil {
		l.logger.Warn("rate limit store write failed",
			slog.String("limiter", l.cfg.Name), slog.Any("error", err))
	}
}

// Sweep drops records whose window has ended
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	now := l.now()
	return l.store.Sweep(ctx, func(r Record) bool { return now.After(r.ResetAt) })
}

func (l *Limiter) Name() string {
	return l.cfg.Name
}

// retryAfterSeconds rounds up to whole seconds, never below one
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
