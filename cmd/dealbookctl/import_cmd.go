package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/MacJediWizard/dealbook/internal/config"
	"github.com/MacJediWizard/dealbook/internal/importer"
	"github.com/spf13/cobra"
)

type importOutput struct {
	Entity     importer.Entity  `json:"entity"`
	Source     string           `json:"source"`
	DurationMS int64            `json:"duration_ms"`
	Result     *importer.Result `json:"result"`
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import investors|funds <path|s3://bucket/key>",
		Short: "Load a CSV export into the directory",
		Long: "Reads a CSV file from disk or S3, cleans each row and inserts it. " +
			"Rows that fail to parse or insert are skipped and reported.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := importer.ParseEntity(args[0])
			if err != nil {
				return err
			}
			source := args[1]
			ctx := cmd.Context()
			logger := opts.logger()

			var client importer.ObjectGetter
			if strings.HasPrefix(source, "s3://") {
				s3cfg := config.LoadServerConfig().S3
				c, err := importer.NewS3Client(ctx, importer.S3Config{
					Region:          s3cfg.Region,
					Endpoint:        s3cfg.Endpoint,
					AccessKeyID:     s3cfg.AccessKeyID,
					SecretAccessKey: s3cfg.SecretAccessKey,
				})
				if err != nil {
					return err
				}
				client = c
			}

			r, err := importer.Open(ctx, source, client)
			if err != nil {
				return err
			}
			defer r.Close()

			database, err := opts.connect(ctx, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			start := time.Now()
			res, err := importer.New(database, logger).Import(ctx, entity, r)
			if err != nil {
				return fmt.Errorf("import %s: %w", entity, err)
			}
			return writeJSON(importOutput{
				Entity:     entity,
				Source:     source,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}
}
