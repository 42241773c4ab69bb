package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/surveyhub/internal/database"
	"github.com/BradenHooton/surveyhub/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|reset]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx, migrations.FS, command); err != nil {
			return fmt.Errorf("migrate %s: %w", command, err)
		}

		logger.Info("migration finished", slog.String("command", command))
		return nil
	},
}
