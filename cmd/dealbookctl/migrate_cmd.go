package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	var showVersion, list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return listMigrations()
			}

			logger := opts.logger()
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := opts.connect(ctx, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if showVersion {
				version, err := database.CurrentVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Current schema version: %d\n", version)
				return nil
			}

			logger.Info().Msg("running database migrations")
			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			version, err := database.CurrentVersion(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("could not get current version")
				return nil
			}
			logger.Info().Int("version", version).Msg("migrations complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&showVersion, "version", false, "Show current schema version")
	cmd.Flags().BoolVar(&list, "list", false, "List all migrations")
	return cmd
}

func listMigrations() error {
	migrations, err := db.GetMigrations()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(migrations) == 0 {
		fmt.Println("No migrations found")
		return nil
	}
	fmt.Println("Available migrations:")
	for _, m := range migrations {
		fmt.Printf("  %03d: %s\n", m.Version, m.Name)
	}
	return nil
}
