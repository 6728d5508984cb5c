package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/MacJediWizard/dealbook/internal/config"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	databaseURL string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:          "dealbookctl",
		Short:        "Dealbook administration tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.LoadDotEnv()
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "db", "", "Database URL (or set DATABASE_URL env var)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newImportCmd(opts),
		newCleanupTokensCmd(opts),
		newResetUsageCmd(opts),
		newResetDatabaseCmd(opts),
		newStatsCmd(opts),
	)
	return cmd
}

func (o *globalOptions) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// connect opens a small pool for one command.
func (o *globalOptions) connect(ctx context.Context, logger zerolog.Logger) (*db.DB, error) {
	url := o.databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, errors.New("database URL required: use --db or set DATABASE_URL")
	}
	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 5
	cfg.MinConns = 1
	return db.New(ctx, cfg, logger)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
