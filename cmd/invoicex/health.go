package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func newHealthCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the run ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Ledger.DSN == "" {
				return common.NewAppError("CONFIG_ERROR", "LEDGER_DSN is not set", common.ErrInvalidInput)
			}
			ctx := cmd.Context()
			db, _, err := openLedger(ctx, cfg.Ledger, logger)
			if err != nil {
				return err
			}
			defer server.CloseDB(db, logger)

			if err := server.PingDB(ctx, db, logger, timeout); err != nil {
				return err
			}
			cmd.Println("ledger OK")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "ping timeout")
	return cmd
}
