// internal/workers/onboarding/generate-follow-up/models.go
package generatefollowup

import "cohort-workers/internal/models"

type Input struct {
	SessionID         string                  `json:"sessionId"`
	NeedsFollowUp     bool                    `json:"needsFollowUp"`
	HasBirthTimeframe bool                    `json:"hasBirthTimeframe"`
	HasGeography      bool                    `json:"hasGeography"`
	Signals           models.ExtractedSignals `json:"signals"`
}

type Output struct {
	SessionID          string   `json:"sessionId"`
	NeedsFollowUp      bool     `json:"needsFollowUp"`
	Question           string   `json:"question,omitempty"`
	AttemptNumber      int      `json:"attemptNumber"`
	Phase              string   `json:"phase,omitempty"`
	MissingFields      []string `json:"missingFields,omitempty"`
	ProceedWithUnknown bool     `json:"proceedWithUnknown"`
}
