// internal/engine/followup/banks.go
package followup

import (
	"strings"

	"cohort-workers/internal/models"
)

// Deterministic question banks, ordered to match escalating attempts. Entry
// wording must stay indistinguishable in tone from model-generated questions.
var timeframeBank = []string{
	"Could you tell me more specifically when you were born or grew up?",
	"I'm still not clear about when you grew up. Could you mention a decade or year?",
	"Just to pin down the timeline - what year or decade were you born in?",
	"I need to know when you were born - could you share the year or decade?",
}

var geographyBank = []string{
	"Where did you spend your early years?",
	"Could you tell me more specifically where you grew up?",
	"I'd love to know which city, town, or country you grew up in.",
	"Please share where you were born or grew up - any specific location?",
}

// enrichmentBank keeps optional context-gathering going once the required
// facts are in hand.
var enrichmentBank = []string{
	"What music, shows, or trends do you remember shaping your younger years?",
	"Were there any events growing up that you feel defined your generation?",
	"What technology do you remember arriving during your childhood?",
	"Is there anything about how you grew up that you think set your generation apart?",
}

// bankFor picks the bank that targets the still-missing facts.
func bankFor(missing models.MissingInfo) []string {
	switch {
	case missing.BirthTimeframe && missing.Geography:
		return combinedBank()
	case missing.BirthTimeframe:
		return timeframeBank
	case missing.Geography:
		return geographyBank
	default:
		return enrichmentBank
	}
}

// combinedBank pairs the two single-fact banks entry by entry.
func combinedBank() []string {
	out := make([]string, len(timeframeBank))
	for i := range timeframeBank {
		out[i] = timeframeBank[i] + " Also, " + lowerFirst(geographyBank[i])
	}
	return out
}

// bankEntry clamps the attempt index so late attempts reuse the last entry.
func bankEntry(bank []string, attempt int) string {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(bank) {
		attempt = len(bank) - 1
	}
	return bank[attempt]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
