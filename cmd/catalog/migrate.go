package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/book-catalog/internal/repository/sqlite"
)

// NewMigrateCmd creates the migrate subcommand and its up/down/version children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded SQLite schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *sqliteRepo.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all data)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *sqliteRepo.Migrator) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *sqliteRepo.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				cmd.Printf("version %d (dirty: a migration failed partway)\n", version)
				return nil
			}
			cmd.Printf("version %d\n", version)
			return nil
		}),
	})

	return cmd
}

// withMigrator opens the database without migrating it, hands a Migrator to
// fn and closes the database afterwards.
func withMigrator(fn func(cmd *cobra.Command, m *sqliteRepo.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := ensureDBDir(cfg.DBPath); err != nil {
			return err
		}

		db, err := sqliteRepo.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()

		m, err := db.Migrator()
		if err != nil {
			return err
		}
		return fn(cmd, m)
	}
}
