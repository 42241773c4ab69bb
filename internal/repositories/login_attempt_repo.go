package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/surveyhub/internal/database"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository persists brute-force guard state, one row per email
type LoginAttemptRepository struct {
	db *database.DB
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

func (r *LoginAttemptRepository) Upsert(ctx context.Context, rec models.LoginAttemptRecord) error {
	query := `
		INSERT INTO login_attempts (email, attempts, locked_until, last_attempt)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			locked_until = EXCLUDED.locked_until,
			last_attempt = EXCLUDED.last_attempt
	`
	_, err := r.db.Pool.Exec(ctx, query, rec.Email, rec.FailureCount, rec.LockedUntil, rec.LastAttemptAt)
	if err != nil {
		return fmt.Errorf("upsert login attempts: %w", err)
	}
	return nil
}

func (r *LoginAttemptRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE email = $1`, email); err != nil {
		return fmt.Errorf("delete login attempts: %w", err)
	}
	return nil
}

// LoadActive returns rows touched since the given instant plus any still locked
func (r *LoginAttemptRepository) LoadActive(ctx context.Context, since time.Time) ([]models.LoginAttemptRecord, error) {
	query := `
		SELECT email, attempts, locked_until, last_attempt
		FROM login_attempts
		WHERE last_attempt > $1 OR locked_until > NOW()
	`
	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("load login attempts: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.LoginAttemptRecord])
	if err != nil {
		return nil, fmt.Errorf("scan login attempts: %w", err)
	}
	return records, nil
}

// DeleteStale removes rows with no active lock whose last failure is older than before
func (r *LoginAttemptRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM login_attempts
		WHERE last_attempt < $1 AND (locked_until IS NULL OR locked_until < NOW())
	`
	result, err := r.db.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale login attempts: %w", err)
	}
	return result.RowsAffected(), nil
}
