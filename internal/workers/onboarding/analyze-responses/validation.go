// internal/workers/onboarding/analyze-responses/validation.go
package analyzeresponses

import "cohort-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"sessionId", "responses"},
		Properties: map[string]validation.Property{
			"sessionId": {
				Type:        "string",
				Description: "Onboarding session identifier",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(100),
			},
			"responses": {
				Type:        "object",
				Description: "Raw question-slot answers collected so far",
			},
		},
		AdditionalProperties: true,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"sessionId": {
				Type:        "string",
				Description: "Onboarding session identifier",
			},
			"needsFollowUp": {
				Type:        "boolean",
				Description: "Whether a follow-up question is required",
			},
			"hasBirthTimeframe": {
				Type:        "boolean",
				Description: "Whether a birth year or decade was extracted",
			},
			"hasGeography": {
				Type:        "boolean",
				Description: "Whether at least one location was extracted",
			},
			"missingFields": {
				Type:        "array",
				Description: "Required facts still missing",
			},
			"signals": {
				Type:        "object",
				Description: "Extracted signals for downstream activities",
			},
		},
		AdditionalProperties: false,
	}
}

func intPtr(i int) *int {
	return &i
}
