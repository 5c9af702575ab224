// internal/models/signals.go
package models

// ExtractedSignals is an immutable snapshot of everything the extractor
// could pull out of a response set at one point in time. Absent fields mean
// the signal was legitimately unresolved, never an error.
type ExtractedSignals struct {
	// BirthYear is the exact four-digit year, when one was found. It always
	// wins over BirthDecade when both patterns are present.
	BirthYear *int `json:"birthYear,omitempty"`
	// BirthDecade is the decade start (1980, 1990, ...) when only a decade
	// expression was found.
	BirthDecade *int `json:"birthDecade,omitempty"`
	// Locations holds distinct place mentions in order of first appearance.
	// The first entry is treated downstream as the primary location.
	Locations []string `json:"locations,omitempty"`
	// Interests and CulturalMarkers feed the enrichment phase only; they
	// never gate required-info completeness.
	Interests       []string `json:"interests,omitempty"`
	CulturalMarkers []string `json:"culturalMarkers,omitempty"`
}

// HasTimeframe reports whether either timeframe field resolved.
func (s ExtractedSignals) HasTimeframe() bool {
	return s.BirthYear != nil || s.BirthDecade != nil
}

// HasGeography reports whether at least one location was captured.
func (s ExtractedSignals) HasGeography() bool {
	return len(s.Locations) > 0
}

// PrimaryLocation returns the first captured location, or "" when none.
func (s ExtractedSignals) PrimaryLocation() string {
	if len(s.Locations) == 0 {
		return ""
	}
	return s.Locations[0]
}

// AnalysisResult is the gap analysis over a response set.
// NeedsFollowUp is always the logical OR of the two missing flags.
type AnalysisResult struct {
	NeedsFollowUp     bool             `json:"needsFollowUp"`
	HasBirthTimeframe bool             `json:"hasBirthTimeframe"`
	HasGeography      bool             `json:"hasGeography"`
	MissingInfo       MissingInfo      `json:"missingInfo"`
	Signals           ExtractedSignals `json:"signals"`
}

// MissingInfo mirrors the two completeness booleans, negated.
type MissingInfo struct {
	BirthTimeframe bool `json:"birthTimeframe"`
	Geography      bool `json:"geography"`
}

// MissingFields lists the missing facts in a fixed order, for prompts and
// process variables.
func (m MissingInfo) MissingFields() []string {
	var out []string
	if m.BirthTimeframe {
		out = append(out, "birth timeframe")
	}
	if m.Geography {
		out = append(out, "geography")
	}
	return out
}
