// internal/engine/gap/analyzer.go
package gap

import (
	"errors"
	"sort"
	"strings"

	"cohort-workers/internal/engine/extract"
	"cohort-workers/internal/models"
)

// ErrEmptyResponses is returned when the response set holds nothing to
// analyze. This is the only fatal input condition; an answer that parses to
// no signals is a data state, not an error.
var ErrEmptyResponses = errors.New("response set is empty")

// Analyzer decides which required facts are still missing from a response
// set. It is stateless and idempotent: analyzing the same set twice yields
// identical results.
type Analyzer struct {
	extractor *extract.Extractor
}

func NewAnalyzer(extractor *extract.Extractor) *Analyzer {
	return &Analyzer{extractor: extractor}
}

// Analyze concatenates every answer given so far (order-independent), runs
// extraction once over the union, and derives the completeness flags.
func (a *Analyzer) Analyze(responses models.RawResponseSet) (models.AnalysisResult, error) {
	if len(responses) == 0 || responses.IsEmpty() {
		return models.AnalysisResult{}, ErrEmptyResponses
	}

	signals := a.extractor.Extract(joinResponses(responses))

	hasTimeframe := signals.HasTimeframe()
	hasGeography := signals.HasGeography()

	return models.AnalysisResult{
		NeedsFollowUp:     !hasTimeframe || !hasGeography,
		HasBirthTimeframe: hasTimeframe,
		HasGeography:      hasGeography,
		MissingInfo: models.MissingInfo{
			BirthTimeframe: !hasTimeframe,
			Geography:      !hasGeography,
		},
		Signals: signals,
	}, nil
}

// joinResponses flattens the set into one block of text. Keys are sorted so
// map iteration order can never change the outcome.
func joinResponses(responses models.RawResponseSet) string {
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(responses[k]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

// Normalize maps a dynamically-shaped payload (arbitrary keys, optional
// nesting under "responses", legacy key spellings) onto the canonical slot
// layout. This is the single boundary where raw key names matter; nothing
// downstream branches on them. Non-string entries are ignored, not errors.
func Normalize(raw map[string]interface{}) models.RawResponseSet {
	if raw == nil {
		return models.RawResponseSet{}
	}
	if nested, ok := raw["responses"].(map[string]interface{}); ok {
		raw = nested
	}

	out := models.RawResponseSet{}
	for canonical, aliases := range slotAliases {
		for _, key := range aliases {
			if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
				out[canonical] = s
				break
			}
		}
	}

	// Follow-up answers arrive under attempt-scoped keys; fold every
	// unclaimed string entry in as extra analysis text.
	claimed := make(map[string]bool)
	for _, aliases := range slotAliases {
		for _, key := range aliases {
			claimed[key] = true
		}
	}
	for key, v := range raw {
		if claimed[key] {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out[key] = s
		}
	}
	return out
}

// slotAliases maps each canonical slot to the payload keys observed in the
// wild, in lookup order.
var slotAliases = map[string][]string{
	models.SlotBirthDate:    {"birthDate", "birth_date", "birthdate", "response0"},
	models.SlotBackground:   {"background", "geography", "location", "response1"},
	models.SlotInfluences:   {"influences", "response2"},
	models.SlotCurrentFocus: {"currentFocus", "current_focus", "response3"},
}
