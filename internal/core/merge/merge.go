// Package merge reconciles the pattern and generative extraction results.
package merge

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Merge takes, per field, the rule value when it is non-empty and the AI value otherwise.
// No field depends on another.
func Merge(rule, ai entity.FieldSet) entity.FieldSet {
	var out entity.FieldSet
	for _, f := range constants.AllFields {
		out.Set(f, pick(rule.Get(f), ai.Get(f)))
	}
	return out
}

func pick(rule, ai string) string {
	if rule != "" {
		return rule
	}
	return ai
}

// Provenance records which extractor supplied each merged field.
type Provenance map[constants.Field]entity.Source

// Explain reports where each field of Merge(rule, ai) came from.
func Explain(rule, ai entity.FieldSet) Provenance {
	p := make(Provenance, len(constants.AllFields))
	for _, f := range constants.AllFields {
		switch {
		case rule.Get(f) != "":
			p[f] = entity.SourcePattern
		case ai.Get(f) != "":
			p[f] = entity.SourceGenerative
		default:
			p[f] = entity.SourceNone
		}
	}
	return p
}

// Count tallies fields per source.
func (p Provenance) Count(s entity.Source) int {
	n := 0
	for _, v := range p {
		if v == s {
			n++
		}
	}
	return n
}

// AsStrings keys the provenance by canonical field name, for logs and the run ledger.
func (p Provenance) AsStrings() map[string]string {
	m := make(map[string]string, len(p))
	for f, s := range p {
		m[string(f)] = string(s)
	}
	return m
}
