// pkg/registry/validate.go
package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateInput checks a job variable map against the activity's declared
// input schema.
func (a *Activity) ValidateInput(variables map[string]interface{}) error {
	return validateAgainstSchema(a.InputSchema, variables)
}

// ValidateOutput checks a completed job payload against the activity's
// declared output schema.
func (a *Activity) ValidateOutput(payload map[string]interface{}) error {
	return validateAgainstSchema(a.OutputSchema, payload)
}

func validateAgainstSchema(schemaMap, data map[string]interface{}) error {
	if len(schemaMap) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("data validation failed: %v", errs)
	}

	return nil
}
