package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/output"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		inputDir string
		file     string
		dest     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the first document in the input directory and write result.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if inputDir != "" {
				cfg.Input.Dir = inputDir
			}
			if dest != "" {
				cfg.Input.OutputPath = dest
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := process(ctx, a, file, cfg.Input.Dir, cfg.Input.OutputPath)
			if err != nil {
				return err
			}

			logger.Debug("normalized text", "run_id", res.RunID, "text", res.Text.Text)
			body, err := output.Encode(res.Merged)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&inputDir, "input", "", "input directory (overrides INPUT_DIR)")
	cmd.Flags().StringVar(&file, "file", "", "process this file instead of scanning the input directory")
	cmd.Flags().StringVar(&dest, "output", "", "result path (overrides OUTPUT_PATH)")
	return cmd
}

func process(ctx context.Context, a *app, file, dir, dest string) (*pipeline.Result, error) {
	if file != "" {
		return a.processor.ProcessFile(ctx, file, dest)
	}
	return a.processor.ProcessDir(ctx, dir, dest)
}
