package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// StartInput describes the document a run is about to process.
type StartInput struct {
	// ID is used as the run id when set; otherwise a new one is generated.
	ID          uuid.UUID
	SourcePath  string
	ContentHash string
	Format      string
}

// OCROutcome is what the normalizer produced.
type OCROutcome struct {
	Format  string
	Method  string
	Pages   int
	OCRText string
}

// MergeOutcome is what the extractors and the merge produced.
type MergeOutcome struct {
	Rule       entity.FieldSet
	AI         entity.FieldSet
	Merged     entity.FieldSet
	Provenance map[string]string
	ModelName  string
	OutputPath string
	// GenerativeError is recorded when the generative branch degraded; the run still succeeds.
	GenerativeError string
}

// ListFilter narrows List. Zero values mean no constraint.
type ListFilter struct {
	Status string
	Since  time.Time
	Limit  int
}

type RunRepository interface {
	Start(ctx context.Context, in StartInput) (*entity.ExtractRun, error)
	FinishOCR(ctx context.Context, runID uuid.UUID, out OCROutcome) error
	FinishMerged(ctx context.Context, runID uuid.UUID, out MergeOutcome) error
	FinishFailure(ctx context.Context, runID uuid.UUID, message string) error
	Get(ctx context.Context, runID uuid.UUID) (*entity.ExtractRun, error)
	List(ctx context.Context, f ListFilter) ([]*entity.ExtractRun, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

var runColumns = []string{
	"id", "source_path", "content_hash", "format", "method", "pages", "status",
	"error_message", "ocr_text", "rule_fields", "ai_fields", "merged_fields",
	"provenance", "model_name", "output_path", "started_at", "finished_at",
}

func (r *runRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect())
}

func (r *runRepo) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return res, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *runRepo) Start(ctx context.Context, in StartInput) (*entity.ExtractRun, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	run := &entity.ExtractRun{
		ID:         in.ID,
		SourcePath: in.SourcePath,
		Format:     in.Format,
		Status:     string(constants.RunStatusRunning),
		StartedAt:  time.Now().UTC(),
	}
	if in.ContentHash != "" {
		h := in.ContentHash
		run.ContentHash = &h
	}

	query, args := r.builder().Insert(runTable).
		Columns("id", "source_path", "content_hash", "format", "status", "started_at").
		Values(run.ID, run.SourcePath, nullable(in.ContentHash), run.Format, run.Status, run.StartedAt).
		Query()
	if _, err := r.exec(ctx, query, args); err != nil {
		r.log.Error("extract_run start failed", "source_path", in.SourcePath, "err", err)
		return nil, err
	}
	r.log.Info("extract_run started", "run_id", run.ID, "source_path", in.SourcePath)
	return run, nil
}

func (r *runRepo) update(ctx context.Context, runID uuid.UUID, set func(u *entsql.UpdateBuilder)) error {
	u := r.builder().Update(runTable)
	set(u)
	query, args := u.Where(entsql.EQ("id", runID)).Query()
	res, err := r.exec(ctx, query, args)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: extract_run %s", common.ErrNotFound, runID)
	}
	return nil
}

func (r *runRepo) FinishOCR(ctx context.Context, runID uuid.UUID, out OCROutcome) error {
	err := r.update(ctx, runID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.RunStatusOCROK)).
			Set("format", out.Format).
			Set("method", out.Method).
			Set("pages", out.Pages).
			Set("ocr_text", out.OCRText)
	})
	if err != nil {
		r.log.Error("extract_run finish(OCR_OK) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("extract_run advanced (OCR_OK)", "run_id", runID, "method", out.Method, "pages", out.Pages)
	return nil
}

func (r *runRepo) FinishMerged(ctx context.Context, runID uuid.UUID, out MergeOutcome) error {
	rule, err := json.Marshal(out.Rule)
	if err != nil {
		return fmt.Errorf("marshal rule fields: %w", err)
	}
	ai, err := json.Marshal(out.AI)
	if err != nil {
		return fmt.Errorf("marshal ai fields: %w", err)
	}
	merged, err := json.Marshal(out.Merged)
	if err != nil {
		return fmt.Errorf("marshal merged fields: %w", err)
	}
	var prov []byte
	if out.Provenance != nil {
		if prov, err = json.Marshal(out.Provenance); err != nil {
			return fmt.Errorf("marshal provenance: %w", err)
		}
	}

	err = r.update(ctx, runID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.RunStatusMerged)).
			Set("rule_fields", string(rule)).
			Set("ai_fields", string(ai)).
			Set("merged_fields", string(merged)).
			Set("provenance", nullable(string(prov))).
			Set("model_name", nullable(out.ModelName)).
			Set("output_path", nullable(out.OutputPath)).
			Set("error_message", nullable(out.GenerativeError)).
			Set("finished_at", time.Now().UTC())
	})
	if err != nil {
		r.log.Error("extract_run finish(MERGED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("extract_run finished (MERGED)", "run_id", runID, "matched", out.Merged.Matched())
	return nil
}

func (r *runRepo) FinishFailure(ctx context.Context, runID uuid.UUID, message string) error {
	err := r.update(ctx, runID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.RunStatusFailed)).
			Set("error_message", message).
			Set("finished_at", time.Now().UTC())
	})
	if err != nil {
		r.log.Error("extract_run finish(FAILED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Warn("extract_run finished (FAILED)", "run_id", runID, "error", message)
	return nil
}

func (r *runRepo) Get(ctx context.Context, runID uuid.UUID) (*entity.ExtractRun, error) {
	query, args := r.builder().Select(runColumns...).
		From(entsql.Table(runTable)).
		Where(entsql.EQ("id", runID)).
		Query()
	runs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: extract_run %s", common.ErrNotFound, runID)
	}
	return runs[0], nil
}

func (r *runRepo) List(ctx context.Context, f ListFilter) ([]*entity.ExtractRun, error) {
	sel := r.builder().Select(runColumns...).From(entsql.Table(runTable))
	var preds []*entsql.Predicate
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", strings.ToUpper(f.Status)))
	}
	if !f.Since.IsZero() {
		preds = append(preds, entsql.GTE("started_at", f.Since.UTC()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("started_at"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	query, args := sel.Query()
	return r.query(ctx, query, args)
}

func (r *runRepo) query(ctx context.Context, query string, args []any) ([]*entity.ExtractRun, error) {
	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.ExtractRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func scanRun(rows *sql.Rows) (*entity.ExtractRun, error) {
	var (
		run                                  entity.ExtractRun
		contentHash, errMsg, ocrText         sql.NullString
		ruleJSON, aiJSON, mergedJSON, provJS sql.NullString
		modelName, outputPath                sql.NullString
		finishedAt                           sql.NullTime
	)
	if err := rows.Scan(
		&run.ID, &run.SourcePath, &contentHash, &run.Format, &run.Method, &run.Pages, &run.Status,
		&errMsg, &ocrText, &ruleJSON, &aiJSON, &mergedJSON,
		&provJS, &modelName, &outputPath, &run.StartedAt, &finishedAt,
	); err != nil {
		return nil, fmt.Errorf("%w: scan extract_run: %v", common.ErrDatabase, err)
	}

	run.ContentHash = strPtr(contentHash)
	run.ErrorMessage = strPtr(errMsg)
	run.OCRText = strPtr(ocrText)
	run.ModelName = strPtr(modelName)
	run.OutputPath = strPtr(outputPath)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	var err error
	if run.RuleFields, err = fieldSetPtr(ruleJSON); err != nil {
		return nil, err
	}
	if run.AIFields, err = fieldSetPtr(aiJSON); err != nil {
		return nil, err
	}
	if run.MergedFields, err = fieldSetPtr(mergedJSON); err != nil {
		return nil, err
	}
	if provJS.Valid && provJS.String != "" {
		if err := json.Unmarshal([]byte(provJS.String), &run.Provenance); err != nil {
			return nil, fmt.Errorf("decode provenance: %w", err)
		}
	}
	return &run, nil
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func fieldSetPtr(s sql.NullString) (*entity.FieldSet, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var fs entity.FieldSet
	if err := json.Unmarshal([]byte(s.String), &fs); err != nil {
		return nil, fmt.Errorf("decode field set: %w", err)
	}
	return &fs, nil
}

// IsNotFound reports whether err means the run does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
