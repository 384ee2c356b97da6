package extract

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Extractor applies a fixed pattern table to text. The table is never modified after New, so an
// Extractor is safe for concurrent use.
type Extractor struct {
	patterns []FieldPattern
	source   entity.Source
}

// New validates the table: one pattern per canonical field and a group index the pattern has.
func New(patterns []FieldPattern) (*Extractor, error) {
	return newWithSource(patterns, entity.SourcePattern)
}

// NewSourced is New with a different provenance tag on the results.
func NewSourced(patterns []FieldPattern, source entity.Source) (*Extractor, error) {
	return newWithSource(patterns, source)
}

func newWithSource(patterns []FieldPattern, source entity.Source) (*Extractor, error) {
	seen := make(map[constants.Field]bool, len(patterns))
	for _, p := range patterns {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if seen[p.Field] {
			return nil, fmt.Errorf("field %s: more than one pattern", p.Field)
		}
		seen[p.Field] = true
	}
	for _, f := range constants.AllFields {
		if !seen[f] {
			return nil, fmt.Errorf("field %s: no pattern", f)
		}
	}
	if len(seen) != len(constants.AllFields) {
		return nil, fmt.Errorf("pattern table has %d fields, want %d", len(seen), len(constants.AllFields))
	}

	cp := make([]FieldPattern, len(patterns))
	copy(cp, patterns)
	return &Extractor{patterns: cp, source: source}, nil
}

// NewDefault returns an Extractor over DefaultInvoicePatterns.
func NewDefault() *Extractor {
	e, err := New(DefaultInvoicePatterns())
	if err != nil {
		panic(err)
	}
	return e
}

// Extract runs every pattern once against the whole text. First match wins; unmatched fields stay empty.
func (e *Extractor) Extract(text string) entity.ExtractionResult {
	var fs entity.FieldSet
	for _, p := range e.patterns {
		fs.Set(p.Field, p.Find(text))
	}
	return entity.ExtractionResult{Fields: fs, Source: e.source}
}
