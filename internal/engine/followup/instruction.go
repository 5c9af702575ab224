// internal/engine/followup/instruction.go
package followup

import (
	"fmt"
	"strconv"
	"strings"

	"cohort-workers/internal/models"
)

// questionStyle controls how pointed the generated question should be.
type questionStyle string

const (
	styleConversational questionStyle = "conversational"
	styleDirect         questionStyle = "direct"
)

// buildInstruction assembles the prompt for the language-model collaborator.
// It embeds everything the model needs to avoid repeating itself: the phase,
// the missing facts, the full question history, and the facts already known.
func buildInstruction(state *models.ConversationState, analysis models.AnalysisResult, style questionStyle, maxAttempts int) string {
	var b strings.Builder

	b.WriteString("You are a friendly, conversational assistant gathering specific information about when and where someone grew up.\n")
	fmt.Fprintf(&b, "Current attempt: %d/%d.\n", state.AttemptNumber+1, maxAttempts)
	fmt.Fprintf(&b, "Conversation phase: %s.\n", state.Phase)

	if missing := analysis.MissingInfo.MissingFields(); len(missing) > 0 {
		fmt.Fprintf(&b, "Missing information: %s.\n", strings.Join(missing, ", "))
	} else {
		b.WriteString("All required facts are known; ask an optional question that adds cultural or personal context.\n")
	}

	if known := knownFacts(analysis.Signals); len(known) > 0 {
		fmt.Fprintf(&b, "Already known (do not ask again): %s.\n", strings.Join(known, "; "))
	}

	if len(state.AskedQuestions) > 0 {
		b.WriteString("Previously asked questions (your question must differ in topic and style from all of these):\n")
		for _, q := range state.AskedQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	if style == styleDirect {
		b.WriteString("Indirect prompts have not worked. Ask explicitly and directly for the missing information.\n")
	} else {
		b.WriteString("Ask a natural, narrative question that would let the information surface indirectly.\n")
	}

	b.WriteString("Acknowledge what they have already shared, keep a friendly and encouraging tone, and return only the question text.")
	return b.String()
}

// knownFacts renders already-extracted signals so the model does not re-ask.
func knownFacts(s models.ExtractedSignals) []string {
	var facts []string
	if s.BirthYear != nil {
		facts = append(facts, "birth year "+strconv.Itoa(*s.BirthYear))
	} else if s.BirthDecade != nil {
		facts = append(facts, "birth decade "+strconv.Itoa(*s.BirthDecade)+"s")
	}
	if len(s.Locations) > 0 {
		facts = append(facts, "location "+strings.Join(s.Locations, ", "))
	}
	if len(s.Interests) > 0 {
		facts = append(facts, "interests "+strings.Join(s.Interests, ", "))
	}
	if len(s.CulturalMarkers) > 0 {
		facts = append(facts, "cultural markers "+strings.Join(s.CulturalMarkers, ", "))
	}
	return facts
}
