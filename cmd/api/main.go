package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BradenHooton/surveyhub/internal/config"
	"github.com/spf13/cobra"
)

// rootCmd serves the API when invoked without a subcommand
var rootCmd = &cobra.Command{
	Use:   "surveyhub",
	Short: "Multi-tenant survey API",
	Long: `surveyhub serves the survey API: survey authoring, shareable links,
public response submission and analytics.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the JSON logger as the default
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))
	return cfg, logger, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
