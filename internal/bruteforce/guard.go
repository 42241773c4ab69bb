// Package bruteforce locks an email out of login after repeated failures.
// State is kept in a fast store and mirrored write-through to a persistent
// repository so locks survive restarts. Persistence failures never block a login
// decision; they are logged and the in-memory view stays authoritative.
package bruteforce

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/surveyhub/internal/kvstore"
	"github.com/BradenHooton/surveyhub/internal/models"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
)

// Repository persists attempt records across restarts
type Repository interface {
	Upsert(ctx context.Context, rec models.LoginAttemptRecord) error
	Delete(ctx context.Context, email string) error
	LoadActive(ctx context.Context, since time.Time) ([]models.LoginAttemptRecord, error)
}

type Config struct {
	MaxAttempts   int
	AttemptWindow time.Duration
	LockDuration  time.Duration
	ReloadWindow  time.Duration
}

// DefaultConfig is 5 failures within 15 minutes locking for 30 minutes
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		LockDuration:  30 * time.Minute,
		ReloadWindow:  time.Hour,
	}
}

type Guard struct {
	cfg    Config
	cache  kvstore.Store[models.LoginAttemptRecord]
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

type Option func(*Guard)

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a guard. repo may be nil to run without persistence.
func New(cfg Config, cache kvstore.Store[models.LoginAttemptRecord], repo Repository, logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{
		cfg:    cfg,
		cache:  cache,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NormalizeEmail is the key form used for every lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordFailedLogin counts a failure and locks the email once the threshold is hit.
// A failure after the attempt window has elapsed starts a fresh count, but an
// active lock is kept until it passes. Each failure at or over the threshold
// pushes the lock out to now+LockDuration.
func (g *Guard) RecordFailedLogin(ctx context.Context, email string) models.LoginAttemptRecord {
	email = NormalizeEmail(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, found := g.get(ctx, email)
	switch {
	case !found:
		rec = models.LoginAttemptRecord{Email: email}
	case now.Sub(rec.LastAttemptAt) > g.cfg.AttemptWindow:
		rec.FailureCount = 0
		if !rec.IsLocked(now) {
			rec.LockedUntil = nil
		}
	}

	rec.FailureCount++
	rec.LastAttemptAt = now

	if rec.FailureCount >= g.cfg.MaxAttempts {
		until := now.Add(g.cfg.LockDuration)
		rec.LockedUntil = &until
		g.logger.Warn("account locked after repeated login failures",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Int("failures", rec.FailureCount),
			slog.Time("locked_until", until),
		)
	}

	if err := g.cache.Set(ctx, email, rec); err != nil {
		g.logger.Warn("login attempt cache write failed", slog.Any("error", err))
	}
	g.persist(ctx, rec)

	return rec
}

// RecordSuccessfulLogin clears all failure state for the email
func (g *Guard) RecordSuccessfulLogin(ctx context.Context, email string) {
	email = NormalizeEmail(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.forget(ctx, email)
}

// IsAccountLocked reports an active lock and when it lifts. An expired lock is
// purged from both stores on the way out.
func (g *Guard) IsAccountLocked(ctx context.Context, email string) (bool, time.Time) {
	email = NormalizeEmail(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, found := g.get(ctx, email)
	if !found || rec.LockedUntil == nil {
		return false, time.Time{}
	}

	if rec.IsLocked(g.now()) {
		return true, *rec.LockedUntil
	}

	g.forget(ctx, email)
	return false, time.Time{}
}

// RemainingAttempts is the number of failures left before a lock
func (g *Guard) RemainingAttempts(ctx context.Context, email string) int {
	email = NormalizeEmail(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, found := g.get(ctx, email)
	switch {
	case !found:
		return g.cfg.MaxAttempts
	case rec.IsLocked(now):
		return 0
	case now.Sub(rec.LastAttemptAt) > g.cfg.AttemptWindow:
		return g.cfg.MaxAttempts
	}

	return max(0, g.cfg.MaxAttempts-rec.FailureCount)
}

// Load warms the cache from persisted records touched within the reload window
func (g *Guard) Load(ctx context.Context) (int, error) {
	if g.repo == nil {
		return 0, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	records, err := g.repo.LoadActive(ctx, g.now().Add(-g.cfg.ReloadWindow))
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, rec := range records {
		rec.Email = NormalizeEmail(rec.Email)
		if err := g.cache.Set(ctx, rec.Email, rec); err != nil {
			g.logger.Warn("login attempt cache write failed during load", slog.Any("error", err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Sweep evicts cached records with no active lock and no failure inside the window.
// Persistent rows are cleaned separately by the repository cleanup task.
func (g *Guard) Sweep(ctx context.Context) (int, error) {
	now := g.now()
	return g.cache.Sweep(ctx, func(rec models.LoginAttemptRecord) bool {
		return !rec.IsLocked(now) && now.Sub(rec.LastAttemptAt) > g.cfg.AttemptWindow
	})
}

func (g *Guard) get(ctx context.Context, email string) (models.LoginAttemptRecord, bool) {
	rec, found, err := g.cache.Get(ctx, email)
	if err != nil {
		g.logger.Warn("login attempt cache read failed", slog.Any("error", err))
		return models.LoginAttemptRecord{}, false
	}
	return rec, found
}

func (g *Guard) forget(ctx context.Context, email string) {
	if err := g.cache.Delete(ctx, email); err != nil {
		g.logger.Warn("login attempt cache delete failed", slog.Any("error", err))
	}
	if g.repo == nil {
		return
	}
	if err := g.repo.Delete(ctx, email); err != nil {
		g.logger.Warn("failed to delete persisted login attempts",
			slog.String("email", pkglogger.SanitizedEmail(email)), slog.Any("error", err))
	}
}

func (g *Guard) persist(ctx context.Context, rec models.LoginAttemptRecord) {
	if g.repo == nil {
		return
	}
	if err := g.repo.Upsert(ctx, rec); err != nil {
		g.logger.Warn("failed to persist login attempts",
			slog.String("email", pkglogger.SanitizedEmail(rec.Email)), slog.Any("error", err))
	}
}

// CacheTTL gives shared caches an expiry covering the remaining lock or the
// remaining attempt window, whichever ends later.
func CacheTTL(cfg Config) func(models.LoginAttemptRecord) time.Duration {
	return func(rec models.LoginAttemptRecord) time.Duration {
		ttl := time.Until(rec.LastAttemptAt.Add(cfg.AttemptWindow))
		if rec.LockedUntil != nil {
			ttl = max(ttl, time.Until(*rec.LockedUntil))
		}
		return max(ttl, time.Second)
	}
}
