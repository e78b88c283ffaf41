package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/book-catalog/internal/repository/sqlite"
	"github.com/sakif/book-catalog/internal/service"
)

// NewDeactivateUserCmd creates the deactivate-user subcommand. Deactivation
// has no HTTP route; it is only reachable from the database host.
func NewDeactivateUserCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "deactivate-user",
		Short: "Mark a user inactive",
		Long: `Mark a user inactive. Their existing tokens are answered with 403
and they can no longer log in. Running it twice is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := sqliteRepo.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			// Deactivate touches neither tokens nor passwords, so the CLI
			// does not need JWT_SECRET to be set.
			svc := service.NewAuthService(db, nil, nil, cfg.NewLogger(os.Stderr))
			if err := svc.Deactivate(cmd.Context(), email); err != nil {
				return err
			}

			cmd.Printf("User %s deactivated\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the user to deactivate")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
