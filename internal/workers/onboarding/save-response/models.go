// internal/workers/onboarding/save-response/models.go
package saveresponse

import "cohort-workers/internal/models"

type Input struct {
	SessionID string                  `json:"sessionId"`
	SlotID    string                  `json:"slotId"`
	Response  string                  `json:"response"`
	Signals   models.ExtractedSignals `json:"signals"`
}

type Output struct {
	ResponseID string `json:"responseId"`
	SessionID  string `json:"sessionId"`
	SlotID     string `json:"slotId"`
	SavedAt    string `json:"savedAt"`
}
