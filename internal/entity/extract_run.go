package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractRun represents one pipeline run for data transfer between layers.
type ExtractRun struct {
	ID           uuid.UUID         `json:"id"`
	SourcePath   string            `json:"source_path"`
	ContentHash  *string           `json:"content_hash,omitempty"`
	Format       string            `json:"format"`
	Method       string            `json:"method,omitempty"`
	Pages        int               `json:"pages"`
	Status       string            `json:"status"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	OCRText      *string           `json:"ocr_text,omitempty"`
	RuleFields   *FieldSet         `json:"rule_fields,omitempty"`
	AIFields     *FieldSet         `json:"ai_fields,omitempty"`
	MergedFields *FieldSet         `json:"merged_fields,omitempty"`
	Provenance   map[string]string `json:"provenance,omitempty"`
	ModelName    *string           `json:"model_name,omitempty"`
	OutputPath   *string           `json:"output_path,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}
