// internal/workers/onboarding/analyze-responses/models.go
package analyzeresponses

import "cohort-workers/internal/models"

type Input struct {
	SessionID string                 `json:"sessionId"`
	Responses map[string]interface{} `json:"responses"`
}

type Output struct {
	SessionID         string                  `json:"sessionId"`
	NeedsFollowUp     bool                    `json:"needsFollowUp"`
	HasBirthTimeframe bool                    `json:"hasBirthTimeframe"`
	HasGeography      bool                    `json:"hasGeography"`
	MissingFields     []string                `json:"missingFields"`
	Signals           models.ExtractedSignals `json:"signals"`
}
