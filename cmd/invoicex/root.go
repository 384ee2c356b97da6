package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "invoicex",
		Short:         "Extract invoice fields from PDFs, images and text files",
		Long:          `invoicex normalizes an invoice document to text, extracts six fields with a pattern table and a generative model, merges them and writes a JSON result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (env vars override it)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newExportCmd(opts),
		newHealthCmd(opts),
	)
	return cmd
}

// load reads and validates configuration and installs the JSON logger as the default. Logs go to
// logOut, which is stderr in production, so stdout carries only command output.
func (o *rootOptions) load(logOut io.Writer) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, common.NewAppError("CONFIG_ERROR", "load config", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}
