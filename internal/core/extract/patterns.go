package extract

import (
	"fmt"
	"regexp"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// LastGroup selects the highest-numbered capture group that took part in the match. Use it when a
// pattern carries optional label groups ahead of the value, or alternative branches that each
// capture the value in their own group.
const LastGroup = -1

// FieldPattern pairs a field with the expression that finds it and the capture group holding the value.
type FieldPattern struct {
	Field constants.Field
	Expr  *regexp.Regexp
	Group int
}

// Pattern compiles expr case-insensitively. It panics on a bad expression, so tables are
// checked the first time the package is loaded.
func Pattern(field constants.Field, expr string, group int) FieldPattern {
	return FieldPattern{
		Field: field,
		Expr:  regexp.MustCompile("(?i)" + expr),
		Group: group,
	}
}

func (p FieldPattern) groupIndex() int {
	if p.Group == LastGroup {
		return p.Expr.NumSubexp()
	}
	return p.Group
}

// lastParticipating returns the highest group with a submatch in loc, or 0 when none took part.
func lastParticipating(loc []int) int {
	for g := len(loc)/2 - 1; g >= 1; g-- {
		if loc[2*g] >= 0 {
			return g
		}
	}
	return 0
}

func (p FieldPattern) validate() error {
	if p.Expr == nil {
		return fmt.Errorf("field %s: nil expression", p.Field)
	}
	n := p.Expr.NumSubexp()
	if n == 0 {
		return fmt.Errorf("field %s: pattern has no capture group", p.Field)
	}
	if g := p.groupIndex(); g < 1 || g > n {
		return fmt.Errorf("field %s: group %d out of range (pattern has %d)", p.Field, p.Group, n)
	}
	return nil
}

// Find returns the value of the first match, or "" when the text does not match.
func (p FieldPattern) Find(text string) string {
	loc := p.Expr.FindStringSubmatchIndex(text)
	if loc == nil {
		return ""
	}
	g := p.Group
	if g == LastGroup {
		g = lastParticipating(loc)
	}
	if g < 1 || loc[2*g] < 0 {
		return ""
	}
	return text[loc[2*g]:loc[2*g+1]]
}

const monthName = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

const (
	// labelled numbers accept any token carrying a digit
	invoiceValue = `[A-Z0-9][A-Z0-9\-/]*\d[A-Z0-9\-/]*`
	// an unlabelled number must mix letters and digits or be digits only, so dates are skipped
	bareInvoiceValue = `[A-Z0-9\-/]*[A-Z][A-Z0-9\-/]*\d[A-Z0-9\-/]*` +
		`|[A-Z0-9\-/]*\d[A-Z0-9\-/]*[A-Z][A-Z0-9\-/]*` +
		`|\d+`
)

// DefaultInvoicePatterns is the rule table for raw invoice text.
func DefaultInvoicePatterns() []FieldPattern {
	return []FieldPattern{
		// group 1 is the "No./Number" label and group 2 its value; group 3 is the bare form
		Pattern(constants.InvoiceNumber,
			`invoice(?:[ \t]*(no\.?|number|num|#)[ \t]*[:#]?[ \t]*(`+invoiceValue+`)`+
				`|(?:[ \t]*:[ \t]*|[ \t]+)(`+bareInvoiceValue+`)(?:[\s,;]|$))`,
			LastGroup),
		Pattern(constants.Date,
			`\b(`+monthName+`\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`+
				`|\d{1,2}(?:st|nd|rd|th)?\s+`+monthName+`,?\s+\d{4}`+
				`|\d{4}-\d{1,2}-\d{1,2}`+
				`|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})\b`,
			1),
		Pattern(constants.Seller,
			`\b(?:from|seller|sold[ \t]+by)[ \t]*:\s*(\S.*)`,
			1),
		Pattern(constants.Buyer,
			`\b(?:bill(?:ed)?[ \t]+to|buyer|to)[ \t]*:\s*(\S.*)`,
			1),
		Pattern(constants.TotalAmount,
			`\btotal(?:\s+amount)?(?:\s+due)?\s*[:|]?\s*\$?\s*([\d,]*\d(?:\.\d+)?)`,
			1),
		Pattern(constants.Tax,
			`\b(?:tax|vat|gst)(?:\s*\(\s*\d+(?:\.\d+)?\s*%\s*\))?\s*[:|]?\s*\$?\s*([\d,]*\d(?:\.\d+)?)`,
			1),
	}
}
