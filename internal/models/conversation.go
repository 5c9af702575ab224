// internal/models/conversation.go
package models

// Phase of the follow-up conversation.
type Phase string

const (
	// PhaseRequiredInfo gates progression until both required facts are known.
	PhaseRequiredInfo Phase = "required_info"
	// PhaseEnrichment continues optional context-gathering; it never blocks.
	PhaseEnrichment Phase = "enrichment"
)

// ConversationState drives one follow-up sequence for one session. It is
// passed into and returned from every orchestrator call; nothing about it
// lives in process-wide state.
type ConversationState struct {
	SessionID string `json:"sessionId"`
	// AttemptNumber is 0-based and increments after every generated
	// question/answer round, regardless of phase.
	AttemptNumber int   `json:"attemptNumber"`
	Phase         Phase `json:"phase"`
	// AskedQuestions preserves ask order for novelty checks.
	AskedQuestions []string `json:"askedQuestions"`
}

// NewConversationState returns the initial state for a session.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Phase:     PhaseRequiredInfo,
	}
}

// RecordQuestion appends an asked question to the history.
func (c *ConversationState) RecordQuestion(q string) {
	c.AskedQuestions = append(c.AskedQuestions, q)
}
