package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

const (
	ServiceName     = "invoice.v1.InvoiceService"
	ExtractMethod   = "/" + ServiceName + "/Extract"
	SubmitMethod    = "/" + ServiceName + "/Submit"
	ListRunsMethod  = "/" + ServiceName + "/ListRuns"
	RunIDHeader     = "x-run-id"
	defaultRunLimit = 50
)

// Processor is the part of the pipeline the service drives.
type Processor interface {
	ProcessDir(ctx context.Context, dir, dest string) (*pipeline.Result, error)
	ProcessFile(ctx context.Context, path, dest string) (*pipeline.Result, error)
}

// InvoiceServer exposes the pipeline over gRPC. Messages are google.protobuf.Struct so no
// generated stubs are needed.
type InvoiceServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type InvoiceService struct {
	processor Processor
	runs      repository.RunRepository
	queue     async.Queue
	outputDir string
	logger    *slog.Logger
}

type ServiceOption func(*InvoiceService)

// WithQueue enables Submit.
func WithQueue(q async.Queue) ServiceOption {
	return func(s *InvoiceService) { s.queue = q }
}

// WithOutputDir lets requests name an output file. The name is resolved inside dir and may not
// leave it. Without this option any non-empty output is rejected.
func WithOutputDir(dir string) ServiceOption {
	return func(s *InvoiceService) { s.outputDir = filepath.Clean(dir) }
}

// NewInvoiceService builds the service. runs may be nil when no ledger is configured.
func NewInvoiceService(proc Processor, runs repository.RunRepository, logger *slog.Logger, opts ...ServiceOption) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &InvoiceService{processor: proc, runs: runs, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Extract takes {path, output?}. A directory path selects its first input like the CLI does.
// output is a file name relative to the configured output directory.
// The response holds the merged fields; the run id travels in the x-run-id header.
func (s *InvoiceService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		s.logger.Error("extract request missing path")
		return nil, common.InvalidArgumentError("path is required")
	}
	dest, err := s.resolveOutput(stringField(req, "output"))
	if err != nil {
		s.logger.Warn("extract.output.rejected", "path", path, "error", err)
		return nil, err
	}

	var res *pipeline.Result
	if fi, statErr := os.Stat(path); statErr == nil && fi.IsDir() {
		res, err = s.processor.ProcessDir(ctx, path, dest)
	} else {
		res, err = s.processor.ProcessFile(ctx, path, dest)
	}
	if err != nil {
		s.logger.Error("extract.failed", "path", path, "req_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}

	_ = grpc.SetHeader(ctx, metadata.Pairs(RunIDHeader, res.RunID.String()))

	fields := make(map[string]any, 6)
	for k, v := range res.Merged.AsMap() {
		fields[k] = v
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// Submit queues one file for background processing and returns {run_id, status: "QUEUED"}.
// Progress is visible through ListRuns when a ledger is configured.
func (s *InvoiceService) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.queue == nil {
		return nil, common.FailedPreconditionError("background processing is not enabled")
	}
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return nil, common.InvalidArgumentErrorf("path %q is not a readable file", path)
	}
	dest, err := s.resolveOutput(stringField(req, "output"))
	if err != nil {
		s.logger.Warn("submit.output.rejected", "path", path, "error", err)
		return nil, err
	}

	job := async.Job{
		RunID:       uuid.New(),
		Path:        path,
		Dest:        dest,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Warn("submit.enqueue.failed", "path", path, "error", err)
		return nil, common.UnavailableError(err.Error())
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(RunIDHeader, job.RunID.String()))

	out, err := structpb.NewStruct(map[string]any{
		"run_id": job.RunID.String(),
		"status": "QUEUED",
	})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// ListRuns takes {status?, limit?} and returns {runs: [...]} from the ledger, newest first.
func (s *InvoiceService) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, common.FailedPreconditionError("run ledger is not configured")
	}
	filter := repository.ListFilter{
		Status: strings.TrimSpace(stringField(req, "status")),
		Limit:  defaultRunLimit,
	}
	if v, ok := req.GetFields()["limit"]; ok {
		if n := int(v.GetNumberValue()); n > 0 {
			filter.Limit = n
		}
	}

	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		return nil, common.ToStatus(err)
	}

	items := make([]any, 0, len(runs))
	for _, r := range runs {
		item := map[string]any{
			"id":          r.ID.String(),
			"source_path": r.SourcePath,
			"status":      r.Status,
			"format":      r.Format,
			"started_at":  r.StartedAt.UTC().Format(time.RFC3339Nano),
		}
		if r.MergedFields != nil {
			merged := map[string]any{}
			for k, v := range r.MergedFields.AsMap() {
				merged[k] = v
			}
			item["merged"] = merged
		}
		if r.ErrorMessage != nil {
			item["error"] = *r.ErrorMessage
		}
		items = append(items, item)
	}
	out, err := structpb.NewStruct(map[string]any{"runs": items})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// resolveOutput maps a requested output name to a path under the output directory. An empty
// name means no result file.
func (s *InvoiceService) resolveOutput(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	if s.outputDir == "" {
		return "", common.InvalidArgumentError("output is not accepted by this server")
	}
	if filepath.IsAbs(name) {
		return "", common.InvalidArgumentErrorf("output %q must be relative to the output directory", name)
	}
	dest := filepath.Join(s.outputDir, name)
	rel, err := filepath.Rel(s.outputDir, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", common.InvalidArgumentErrorf("output %q escapes the output directory", name)
	}
	return dest, nil
}

func stringField(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServer).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listRunsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServer).ListRuns(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListRunsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServer).ListRuns(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes InvoiceService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InvoiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "ListRuns", Handler: listRunsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoice/v1/invoice.proto",
}
