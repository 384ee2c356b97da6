package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction pipeline over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.GRPCAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.db != nil {
				if err := server.PingDB(ctx, a.db, logger, 5*time.Second); err != nil {
					return err
				}
			}

			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
				return err
			}

			queue := async.NewProcessorQueue(a.processor, logger,
				async.WithWorkers(cfg.Server.Workers),
				async.WithQueueSize(cfg.Server.QueueSize),
				async.WithProcessTimeout(cfg.Server.JobTimeout),
			)
			svc := server.NewInvoiceService(a.processor, a.runs, logger,
				server.WithQueue(queue),
				server.WithOutputDir(filepath.Dir(cfg.Input.OutputPath)),
			)
			gs, hs := server.NewGRPCServer(svc, logger)
			drain := func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.JobTimeout)
				defer cancel()
				queue.Shutdown(shutdownCtx)
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("invoicex listening", "addr", lis.Addr().String(), "ledger", a.db != nil)
				serveErr <- gs.Serve(lis)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down gRPC server")
				hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
				gs.GracefulStop()
				drain()
				return nil
			case err := <-serveErr:
				logger.Error("grpc serve failed", "error", err)
				drain()
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides GRPC_ADDR)")
	return cmd
}
