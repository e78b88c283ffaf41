package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/book-catalog/internal/config"
)

// envFile is the global --env-file flag shared by every subcommand.
var envFile string

// NewRootCmd creates the root command for the catalog CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Book catalog service",
		Long: `A book catalog with user accounts, bearer-token authentication
and per-book reviews, served as a JSON API backed by SQLite.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewDeactivateUserCmd())

	return cmd
}

// loadConfig reads the env file (if any) and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// ensureDBDir creates the database's parent directory (like `mkdir -p`).
// 0755 = owner can read/write/execute, others can read/execute.
func ensureDBDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
