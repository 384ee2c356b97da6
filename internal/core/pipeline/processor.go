package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/merge"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// Result is everything one run produced.
type Result struct {
	RunID      uuid.UUID
	SourcePath string
	OutputPath string
	Text       ocr.ExtractionResult
	Rule       entity.FieldSet
	AI         entity.FieldSet
	Merged     entity.FieldSet
	Provenance merge.Provenance
	// GenerativeErr is set when the generative branch degraded to an empty result.
	GenerativeErr error
	Duration      time.Duration
}

// Processor coordinates normalize -> {pattern, generative} -> merge -> write for one document.
type Processor struct {
	logger     *slog.Logger
	normalizer TextNormalizer
	patterns   PatternExtractor
	generator  TextGenerator
	writer     ResultWriter
	runs       repository.RunRepository
}

// NewProcessor wires the stages. generator may be nil (pattern-only runs); runs may be nil
// (no ledger).
func NewProcessor(
	logger *slog.Logger,
	normalizer TextNormalizer,
	patterns PatternExtractor,
	generator TextGenerator,
	writer ResultWriter,
	runs repository.RunRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		normalizer: normalizer,
		patterns:   patterns,
		generator:  generator,
		writer:     writer,
		runs:       runs,
	}
}

// ProcessDir selects the first input in dir and processes it.
func (p *Processor) ProcessDir(ctx context.Context, dir, dest string) (*Result, error) {
	path, err := ingest.FirstInput(dir)
	if err != nil {
		p.logger.Error("pipeline.input.failed", "dir", dir, "error", err)
		return nil, err
	}
	p.logger.Info("pipeline.input.selected", "path", path)
	if ext := filepath.Ext(path); ext != "" && !ingest.AllowedExt(ext) {
		p.logger.Warn("pipeline.input.unsupported_ext", "path", path, "ext", ext)
	}
	return p.ProcessFile(ctx, path, dest)
}

// ProcessFile runs the whole pipeline for one document. When dest is empty the merged fields
// are returned but not written. Loading and format errors abort before anything is written;
// a failing generative branch only degrades the result.
func (p *Processor) ProcessFile(ctx context.Context, path, dest string) (*Result, error) {
	start := time.Now()
	runID := p.startRun(ctx, path)
	ctx = common.WithRunID(ctx, runID.String())
	res := &Result{RunID: runID, SourcePath: path}

	p.logger.Info("pipeline.run.start", "run_id", runID, "path", path)

	// 1) normalize
	text, err := p.normalizer.Extract(ctx, path)
	if err != nil {
		p.failRun(ctx, runID, err)
		p.logger.Error("pipeline.normalize.failed", "run_id", runID, "path", path, "error", err)
		return nil, err
	}
	res.Text = text
	p.logger.Info("pipeline.normalize.ok",
		"run_id", runID,
		"format", text.Format,
		"method", text.Method,
		"pages", text.Pages,
		"chars", len(text.Text),
		"elapsed_ms", text.Duration.Milliseconds(),
	)
	p.logger.Debug("pipeline.normalize.text", "run_id", runID, "text", text.Text)
	p.ledger(ctx, "finish_ocr", func() error {
		return p.runs.FinishOCR(ctx, runID, repository.OCROutcome{
			Format:  text.Format,
			Method:  text.Method,
			Pages:   text.Pages,
			OCRText: text.Text,
		})
	})

	// 2) extract; both branches read the same immutable text
	rule, ai, genErr := p.extractBoth(ctx, text.Text)
	res.Rule, res.AI, res.GenerativeErr = rule.Fields, ai.Fields, genErr

	// 3) merge
	res.Merged = merge.Merge(res.Rule, res.AI)
	res.Provenance = merge.Explain(res.Rule, res.AI)
	p.logger.Info("pipeline.merge.ok",
		"run_id", runID,
		"from_pattern", res.Provenance.Count(entity.SourcePattern),
		"from_generative", res.Provenance.Count(entity.SourceGenerative),
		"empty", res.Provenance.Count(entity.SourceNone),
	)

	// 4) write
	if dest != "" {
		if err := p.writer.Write(res.Merged, dest); err != nil {
			p.failRun(ctx, runID, err)
			p.logger.Error("pipeline.write.failed", "run_id", runID, "dest", dest, "error", err)
			return nil, err
		}
		res.OutputPath = dest
	}

	outcome := repository.MergeOutcome{
		Rule:       res.Rule,
		AI:         res.AI,
		Merged:     res.Merged,
		Provenance: res.Provenance.AsStrings(),
		OutputPath: dest,
	}
	if p.generator != nil {
		outcome.ModelName = p.generator.ModelName()
	}
	if genErr != nil {
		outcome.GenerativeError = genErr.Error()
	}
	p.ledger(ctx, "finish_merged", func() error {
		return p.runs.FinishMerged(ctx, runID, outcome)
	})

	res.Duration = time.Since(start)
	p.logger.Info("pipeline.run.ok",
		"run_id", runID,
		"matched", res.Merged.Matched(),
		"degraded", genErr != nil,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// extractBoth runs the pattern and generative branches concurrently and joins them. A generative
// failure is carried back as genErr, never as a group error, so it cannot stop the pattern branch.
// The zero Group has no shared context to cancel.
func (p *Processor) extractBoth(ctx context.Context, text string) (rule, ai entity.ExtractionResult, genErr error) {
	var g errgroup.Group

	g.Go(func() error {
		rule = p.patterns.Extract(text)
		return nil
	})

	g.Go(func() error {
		ai = entity.ExtractionResult{Source: entity.SourceGenerative}
		if p.generator == nil {
			genErr = common.ErrModelUnavailable
			return nil
		}
		raw, err := p.generator.Generate(ctx, text)
		if err != nil {
			genErr = err
			return nil
		}
		ai = llm.ParseGenerated(raw)
		return nil
	})

	_ = g.Wait()

	runID := common.RunIDFromContext(ctx)
	p.logger.Debug("pipeline.pattern.ok", "run_id", runID, "matched", rule.Fields.Matched())
	switch {
	case genErr == nil:
		p.logger.Debug("pipeline.generative.ok", "run_id", runID, "matched", ai.Fields.Matched())
	case p.generator == nil:
		p.logger.Info("pipeline.generative.disabled", "run_id", runID)
	default:
		p.logger.Warn("pipeline.generative.degraded", "run_id", runID, "error", genErr)
	}
	return rule, ai, genErr
}

// startRun records the run in the ledger. A run id already present on ctx (set by whoever
// queued the document) is reused.
func (p *Processor) startRun(ctx context.Context, path string) uuid.UUID {
	id, err := uuid.Parse(common.RunIDFromContext(ctx))
	if err != nil {
		id = uuid.New()
	}
	if p.runs == nil {
		return id
	}
	in := repository.StartInput{ID: id, SourcePath: path}
	if info, err := ingest.Describe(path); err == nil {
		in.SourcePath = info.SourcePath
		in.ContentHash = info.HashHex
		in.Format = constants.MapExtToFormat(info.FileExt)
	}
	run, err := p.runs.Start(ctx, in)
	if err != nil {
		p.logger.Warn("pipeline.ledger.start_failed", "path", path, "error", err)
		return id
	}
	return run.ID
}

func (p *Processor) failRun(ctx context.Context, runID uuid.UUID, cause error) {
	p.ledger(ctx, "finish_failure", func() error {
		return p.runs.FinishFailure(ctx, runID, cause.Error())
	})
}

// ledger runs a run-ledger write. Ledger errors are logged and never fail the run.
func (p *Processor) ledger(ctx context.Context, op string, fn func() error) {
	if p.runs == nil {
		return
	}
	if err := fn(); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, common.ErrNotFound) {
			level = slog.LevelDebug
		}
		p.logger.Log(ctx, level, "pipeline.ledger.failed", "op", op, "run_id", common.RunIDFromContext(ctx), "error", err)
	}
}
