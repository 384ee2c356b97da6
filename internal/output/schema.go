package output

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// buildResultSchema returns the JSON Schema every result document must satisfy: an object with
// exactly the six canonical keys, all strings.
func buildResultSchema() map[string]any {
	props := make(map[string]any, len(constants.AllFields))
	for _, f := range constants.AllFields {
		props[string(f)] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             constants.AsStringSlice(),
	}
}

var resultSchema = mustCompileResultSchema()

func mustCompileResultSchema() *jsonschema.Schema {
	b, err := json.Marshal(buildResultSchema())
	if err != nil {
		panic(fmt.Sprintf("marshal result schema: %v", err))
	}
	return jsonschema.MustCompileString("result.schema.json", string(b))
}

// ValidateResult checks a serialized result document against the result schema.
func ValidateResult(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	if err := resultSchema.Validate(v); err != nil {
		return fmt.Errorf("result does not match schema: %w", err)
	}
	return nil
}
