// Package main implements the memoryd CLI for working-memory operations:
// appending typed entries, querying and searching them, and assembling
// budget-bounded context selections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var (
	configPath string
	storePath  string
	logLevel   string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memoryd",
	Short: "CLI for the memoryd working-memory store",
	Long: `memoryd is a command-line interface for a durable agent working memory.
It stores typed entries in SQLite and retrieves them by category, text
match, semantic similarity, or budget-bounded context selection.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&storePath, "db", "", "storage file path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(backfillCmd)
}

// loadConfig resolves config from file, environment and flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// withService builds a service, opens the store and runs fn, closing on return.
func withService(cmd *cobra.Command, fn func(svc *memory.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	svc, err := memory.NewService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	if !svc.Init(cmd.Context(), cfg.Store.Path) {
		return fmt.Errorf("failed to open store at %s", cfg.Store.Path)
	}

	return fn(svc)
}
