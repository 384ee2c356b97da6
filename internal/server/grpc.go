package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// NewGRPCServer registers the invoice service, the health service and reflection.
// The returned health server starts out SERVING.
func NewGRPCServer(svc InvoiceServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(requestLogger(logger)))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// reflection for grpcurl
	reflection.Register(gs)

	gs.RegisterService(&ServiceDesc, svc)
	return gs, hs
}

// requestLogger tags each call with a req_id and logs its outcome.
func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqID := uuid.NewString()
		ctx = common.WithRequestID(ctx, reqID)

		resp, err := handler(ctx, req)

		attrs := []any{
			"method", info.FullMethod,
			"req_id", reqID,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.request.failed", append(attrs, "error", err)...)
		} else {
			logger.Info("grpc.request.ok", attrs...)
		}
		return resp, err
	}
}
