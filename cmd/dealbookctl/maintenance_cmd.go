package main

import (
	"errors"
	"fmt"

	"github.com/MacJediWizard/dealbook/internal/jobs"
	"github.com/spf13/cobra"
)

func newCleanupTokensCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete expired and long-revoked refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			database, err := opts.connect(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := jobs.NewScheduler(database, logger).RunNow(cmd.Context(), jobs.JobTokenCleanup)
			if err != nil {
				return err
			}
			return writeJSON(map[string]int64{"deleted": n})
		},
	}
}

func newResetUsageCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-usage",
		Short: "Zero every account's monthly search counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			database, err := opts.connect(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := jobs.NewScheduler(database, logger).RunNow(cmd.Context(), jobs.JobUsageReset)
			if err != nil {
				return err
			}
			return writeJSON(map[string]int64{"users": n})
		},
	}
}

func newResetDatabaseCmd(opts *globalOptions) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset-database",
		Short: "Drop every table and re-apply the migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("refusing to reset the database without --yes")
			}
			logger := opts.logger()
			database, err := opts.connect(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.ResetDatabase(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm that all data will be deleted")
	return cmd
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print directory record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			database, err := opts.connect(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			st, err := database.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(st)
		},
	}
}
