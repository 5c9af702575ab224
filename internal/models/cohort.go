// internal/models/cohort.go
package models

// Generation labels, oldest to youngest. The set is fixed; classification
// never invents a label outside it.
const (
	GenTraditionalist = "Traditionalist"
	GenBabyBoomer     = "Baby Boomer"
	GenX              = "Generation X"
	GenMillennial     = "Millennial"
	GenZ              = "Generation Z"
	GenAlpha          = "Generation Alpha"
	GenUnknown        = "Unknown"
)

// Micro-generation labels for cusp-adjacent ranges.
const (
	MicroGenJones       = "Generation Jones"
	MicroGenXennials    = "Xennials"
	MicroGenZillennials = "Zillennials"
)

// CohortResult is the classification outcome. It is immutable once created;
// a manual override produces a fresh result rather than editing this one.
type CohortResult struct {
	Generation string  `json:"generation"`
	Confidence float64 `json:"confidence"`
	Region     string  `json:"region"`
	// MicroGeneration is set when the resolved year falls inside one of the
	// narrower cusp ranges (Jones, Xennials, Zillennials).
	MicroGeneration string `json:"microGeneration,omitempty"`
	// Alternatives lists every other defined label, most to least likely.
	Alternatives []string `json:"alternatives"`
	// Cusp marks a birth year within the boundary window of two cohorts.
	Cusp bool `json:"cusp"`
	// ResolvedYear is the effective birth year the classification used;
	// zero when nothing could be resolved.
	ResolvedYear int `json:"resolvedYear,omitempty"`
}
