package pipeline

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// TextNormalizer is stage 1: document -> normalized text.
type TextNormalizer interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// PatternExtractor is stage 2a: text -> fields by rule table.
type PatternExtractor interface {
	Extract(text string) entity.ExtractionResult
}

// TextGenerator is stage 2b: text -> raw model completion.
type TextGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
	ModelName() string
}

// ResultWriter persists the merged fields.
type ResultWriter interface {
	Write(fields entity.FieldSet, dest string) error
}
