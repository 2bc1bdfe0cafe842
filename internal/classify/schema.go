package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// batchResponseSchema is the contract the model's reply must satisfy before
// any field is trusted. Any deviation is a classification failure, which the
// pipeline answers with the rule fallback, never a crash.
const batchResponseSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["category", "merchant", "description", "confidence"],
		"properties": {
			"category":    {"type": "string", "minLength": 1},
			"merchant":    {"type": "string"},
			"description": {"type": "string"},
			"confidence":  {"type": "number", "minimum": 0, "maximum": 1}
		}
	}
}`

// validateBatchJSON checks the cleaned model output against the response
// schema.
func validateBatchJSON(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("batch.json", strings.NewReader(batchResponseSchema)); err != nil {
		return fmt.Errorf("validateBatchJSON: add schema: %w", err)
	}
	schema, err := compiler.Compile("batch.json")
	if err != nil {
		return fmt.Errorf("validateBatchJSON: compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("validateBatchJSON: unmarshal: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("validateBatchJSON: response does not match schema: %w", err)
	}
	return nil
}
