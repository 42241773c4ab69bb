package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories react to
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeUndefinedColumn     = "42703"
	CodeUndefinedTable      = "42P01"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case CodeUniqueViolation:
			return models.ErrConflict
		case CodeForeignKeyViolation, CodeNotNullViolation:
			return models.ErrBadRequest
		}
	}

	return err
}

// HasCode reports whether err wraps a PostgreSQL error with the given SQLSTATE
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func IsUniqueViolation(err error) bool { return HasCode(err, CodeUniqueViolation) }

// IsUniqueViolationOn reports whether err is a unique violation of the named
// constraint or index
func IsUniqueViolationOn(err error, name string) bool {
	var pgErr *pgconn.PgError
	return IsUniqueViolation(err) && errors.As(err, &pgErr) && pgErr.ConstraintName == name
}

// IsUndefinedColumn detects schema drift where a migration adding a column has not run
func IsUndefinedColumn(err error) bool { return HasCode(err, CodeUndefinedColumn) }

func IsUndefinedTable(err error) bool { return HasCode(err, CodeUndefinedTable) }

func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// WithConnTransaction runs fn in a transaction on a dedicated pooled connection.
// The connection is always released and the transaction is rolled back on every
// path that does not commit, including panics.
func (db *DB) WithConnTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
