package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationsDir is the directory inside the embedded filesystem holding goose SQL files
const MigrationsDir = "sql"

// Migrate applies a goose command ("up", "down", "status", "reset") using the pool's
// connection settings and the embedded migration files.
func (db *DB) Migrate(ctx context.Context, migrations fs.FS, command string) error {
	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, sqlDB, MigrationsDir)
	case "down":
		err = goose.DownContext(ctx, sqlDB, MigrationsDir)
	case "status":
		err = goose.StatusContext(ctx, sqlDB, MigrationsDir)
	case "reset":
		err = goose.ResetContext(ctx, sqlDB, MigrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}

	version, verr := goose.GetDBVersionContext(ctx, sqlDB)
	if verr == nil {
		db.logger.Info("migrations complete", slog.String("command", command), slog.Int64("version", version))
	}
	return nil
}

// MigrateTo migrates up to a specific version. Integration tests use it to
// reproduce deployments that have not yet applied later migrations.
func (db *DB) MigrateTo(ctx context.Context, migrations fs.FS, version int64) error {
	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpToContext(ctx, sqlDB, MigrationsDir, version); err != nil {
		return fmt.Errorf("migrate up to %d: %w", version, err)
	}
	return nil
}
