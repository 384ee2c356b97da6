package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// PromptDelimiter separates the instruction block from the document text.
const PromptDelimiter = "\n---\n"

// BuildPrompt composes the fixed instruction block followed by the document text, unmodified.
// The same text always yields the same prompt.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the invoice text below: ")
	labels := make([]string, len(constants.AllFields))
	for i, f := range constants.AllFields {
		labels[i] = f.Label()
	}
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\nAnswer with exactly one line per field in the form <Label>: <value>, in this order:\n")
	for _, l := range labels {
		b.WriteString(l)
		b.WriteString(": \n")
	}
	b.WriteString("If a field is not present, leave its value empty. Do not add any other text.")
	b.WriteString(PromptDelimiter)
	b.WriteString(text)
	return b.String()
}
