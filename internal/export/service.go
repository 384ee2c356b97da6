package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// SheetName is the worksheet holding one row per ledger run.
const SheetName = "Runs"

// Service produces XLSX workbooks from the run ledger.
type Service struct {
	runs   repository.RunRepository
	logger *slog.Logger
}

func NewService(runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// Headers returns the column headers in workbook order.
func Headers() []string {
	h := []string{"Started At", "Status", "Source Path", "Format"}
	for _, f := range constants.AllFields {
		h = append(h, f.Label())
	}
	return append(h, "Model", "Output Path", "Error")
}

// ExportRunsXLSX returns an XLSX workbook (as bytes) of the runs matching filter,
// newest first. Runs that never merged leave the field columns empty.
func (s *Service) ExportRunsXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// rename the default sheet rather than leaving an empty "Sheet1" behind
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(idx)

	for i, h := range Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Headers()), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, r := range runs {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := runRow(r)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 20) // started
	_ = f.SetColWidth(SheetName, "B", "B", 10) // status
	_ = f.SetColWidth(SheetName, "C", "C", 48) // path
	_ = f.SetColWidth(SheetName, "E", "J", 22) // fields
	_ = f.SetColWidth(SheetName, "K", "M", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(runs),
		"status", filter.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteFile exports to dest, creating parent directories.
func (s *Service) WriteFile(ctx context.Context, filter repository.ListFilter, dest string) error {
	data, err := s.ExportRunsXLSX(ctx, filter)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWriteFailure, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWriteFailure, err)
	}
	return nil
}

func runRow(r *entity.ExtractRun) []any {
	var fields entity.FieldSet
	if r.MergedFields != nil {
		fields = *r.MergedFields
	}
	row := []any{
		r.StartedAt.UTC().Format(time.RFC3339),
		r.Status,
		r.SourcePath,
		r.Format,
	}
	for _, f := range constants.AllFields {
		row = append(row, fields.Get(f))
	}
	return append(row,
		deref(r.ModelName),
		deref(r.OutputPath),
		truncate(deref(r.ErrorMessage), 140),
	)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
