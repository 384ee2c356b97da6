package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// labeledLine matches "<label>: <value>" on a line of its own, tolerating list bullets and
// markdown bold around the label.
func labeledLine(label string) string {
	return `(?m)^[ \t*\-]*(?:` + label + `)[ \t*]*:[ \t*]*(.*?)[ \t*]*$`
}

// GeneratedPatterns is the rule table for model completions. It is kept apart from the invoice
// table because completions are labelled lines, not invoice layout.
func GeneratedPatterns() []extract.FieldPattern {
	return []extract.FieldPattern{
		extract.Pattern(constants.InvoiceNumber, labeledLine(`invoice[ \t_]*(?:number|no\.?|#)`), 1),
		extract.Pattern(constants.Date, labeledLine(`(?:invoice[ \t_]*)?date`), 1),
		extract.Pattern(constants.Seller, labeledLine(`seller`), 1),
		extract.Pattern(constants.Buyer, labeledLine(`buyer`), 1),
		extract.Pattern(constants.TotalAmount, labeledLine(`total(?:[ \t_]*amount)?`), 1),
		extract.Pattern(constants.Tax, labeledLine(`tax`), 1),
	}
}

var generatedExtractor = mustGeneratedExtractor()

func mustGeneratedExtractor() *extract.Extractor {
	e, err := extract.NewSourced(GeneratedPatterns(), entity.SourceGenerative)
	if err != nil {
		panic(err)
	}
	return e
}

var placeholders = map[string]bool{
	"n/a":           true,
	"na":            true,
	"none":          true,
	"null":          true,
	"nil":           true,
	"unknown":       true,
	"not found":     true,
	"not available": true,
	"not provided":  true,
	"-":             true,
	"--":            true,
}

func isPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.Trim(v, `"'.`)
	return v == "" || placeholders[v]
}

// ParseGenerated re-reads a completion into the canonical field set. First match per field
// wins; placeholder answers count as unmatched.
func ParseGenerated(raw string) entity.ExtractionResult {
	res := generatedExtractor.Extract(raw)
	for _, f := range constants.AllFields {
		if isPlaceholder(res.Fields.Get(f)) {
			res.Fields.Set(f, "")
		}
	}
	return res
}
