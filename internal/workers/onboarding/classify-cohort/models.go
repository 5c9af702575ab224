// internal/workers/onboarding/classify-cohort/models.go
package classifycohort

import "cohort-workers/internal/models"

type Input struct {
	SessionID          string                  `json:"sessionId"`
	Signals            models.ExtractedSignals `json:"signals"`
	ProceedWithUnknown bool                    `json:"proceedWithUnknown"`
}

type Output struct {
	SessionID       string   `json:"sessionId"`
	Generation      string   `json:"generation"`
	Confidence      float64  `json:"confidence"`
	Region          string   `json:"region"`
	MicroGeneration string   `json:"microGeneration,omitempty"`
	Alternatives    []string `json:"alternatives"`
	Cusp            bool     `json:"cusp"`
	ResolvedYear    int      `json:"resolvedYear,omitempty"`
	ResultID        string   `json:"resultId"`
}
