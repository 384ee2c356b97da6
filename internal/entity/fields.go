package entity

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// FieldSet holds the six canonical invoice fields. An unmatched field is the empty string.
// JSON tags follow the canonical output order.
type FieldSet struct {
	InvoiceNumber string `json:"invoice_number"`
	Date          string `json:"date"`
	Seller        string `json:"seller"`
	Buyer         string `json:"buyer"`
	TotalAmount   string `json:"total_amount"`
	Tax           string `json:"tax"`
}

// Get returns the value stored for f.
func (s FieldSet) Get(f constants.Field) string {
	switch f {
	case constants.InvoiceNumber:
		return s.InvoiceNumber
	case constants.Date:
		return s.Date
	case constants.Seller:
		return s.Seller
	case constants.Buyer:
		return s.Buyer
	case constants.TotalAmount:
		return s.TotalAmount
	case constants.Tax:
		return s.Tax
	}
	return ""
}

// Set stores a trimmed value for f. Unknown fields are ignored.
func (s *FieldSet) Set(f constants.Field, v string) {
	v = strings.TrimSpace(v)
	switch f {
	case constants.InvoiceNumber:
		s.InvoiceNumber = v
	case constants.Date:
		s.Date = v
	case constants.Seller:
		s.Seller = v
	case constants.Buyer:
		s.Buyer = v
	case constants.TotalAmount:
		s.TotalAmount = v
	case constants.Tax:
		s.Tax = v
	}
}

// IsEmpty reports whether no field matched.
func (s FieldSet) IsEmpty() bool {
	return s == FieldSet{}
}

// Matched counts non-empty fields.
func (s FieldSet) Matched() int {
	n := 0
	for _, f := range constants.AllFields {
		if s.Get(f) != "" {
			n++
		}
	}
	return n
}

// AsMap returns the fields keyed by their canonical names; every key is always present.
func (s FieldSet) AsMap() map[string]string {
	m := make(map[string]string, len(constants.AllFields))
	for _, f := range constants.AllFields {
		m[string(f)] = s.Get(f)
	}
	return m
}

// FieldSetFromMap builds a FieldSet from canonical keys; unknown keys are dropped.
func FieldSetFromMap(m map[string]string) FieldSet {
	var s FieldSet
	for _, f := range constants.AllFields {
		s.Set(f, m[string(f)])
	}
	return s
}

// Source tags which extractor produced a result.
type Source string

const (
	SourcePattern    Source = "pattern"
	SourceGenerative Source = "generative"
	SourceNone       Source = "none"
)

// ExtractionResult is a FieldSet produced by exactly one extractor.
type ExtractionResult struct {
	Fields FieldSet
	Source Source
}
