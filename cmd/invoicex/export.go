package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		dest   string
		status string
		since  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export ledger runs to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Ledger.DSN == "" {
				return common.NewAppError("CONFIG_ERROR", "LEDGER_DSN is required for export", common.ErrInvalidInput)
			}

			filter := repository.ListFilter{Status: status, Limit: limit}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return common.NewAppError("INVALID_INPUT", "since must be YYYY-MM-DD", common.ErrInvalidInput)
				}
				filter.Since = t
			}

			ctx := cmd.Context()
			db, runs, err := openLedger(ctx, cfg.Ledger, logger)
			if err != nil {
				return err
			}
			defer server.CloseDB(db, logger)

			if err := export.NewService(runs, logger).WriteFile(ctx, filter, dest); err != nil {
				logger.Error("export.xlsx.failed", "dest", dest, "error", err)
				return err
			}
			cmd.Printf("wrote %s\n", dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "out", "o", "./output/runs.xlsx", "workbook path")
	cmd.Flags().StringVar(&status, "status", "", "only runs with this status (RUNNING|OCR_OK|MERGED|FAILED)")
	cmd.Flags().StringVar(&since, "since", "", "only runs started on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of runs (0 = all)")
	return cmd
}
