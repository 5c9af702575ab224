// internal/engine/cohort/classifier.go
package cohort

import (
	"sort"
	"time"

	"cohort-workers/internal/models"
)

// Confidence weights. These literal values are the classification contract;
// they are plumbed through config purely as tunables.
const (
	baseYearConfidence   = 0.5
	regionBonus          = 0.3
	implausiblePenalty   = 0.3
	unresolvedConfidence = 0.1
	earliestPlausible    = 1920
	cuspWindow           = 2
)

// generationRange is one row of the boundary table, inclusive on both ends.
type generationRange struct {
	label string
	from  int
	to    int
}

// Boundary table, oldest to youngest. The open ends are pinned so distance
// ordering stays well-defined.
var generations = []generationRange{
	{label: models.GenTraditionalist, from: 1900, to: 1945},
	{label: models.GenBabyBoomer, from: 1946, to: 1964},
	{label: models.GenX, from: 1965, to: 1980},
	{label: models.GenMillennial, from: 1981, to: 1996},
	{label: models.GenZ, from: 1997, to: 2012},
	{label: models.GenAlpha, from: 2013, to: 2100},
}

// Micro-generation ranges straddling the main boundaries.
var microGenerations = []generationRange{
	{label: models.MicroGenJones, from: 1954, to: 1965},
	{label: models.MicroGenXennials, from: 1977, to: 1983},
	{label: models.MicroGenZillennials, from: 1994, to: 1998},
}

// Classifier maps a resolved birth timeframe and region onto a generation
// label with a confidence score and ranked alternatives.
type Classifier struct {
	currentYear int
}

func NewClassifier() *Classifier {
	return &Classifier{currentYear: time.Now().Year()}
}

// NewClassifierAt pins the plausibility window for tests.
func NewClassifierAt(year int) *Classifier {
	return &Classifier{currentYear: year}
}

// Classify resolves an effective birth year (exact year, else decade
// midpoint) and classifies it. When nothing resolves it returns the
// lowest-confidence Unknown result rather than an error.
func (c *Classifier) Classify(birthYear, birthDecade *int, region *string) models.CohortResult {
	regionLabel := "unknown"
	if region != nil && *region != "" {
		regionLabel = *region
	}

	year := 0
	switch {
	case birthYear != nil:
		year = *birthYear
	case birthDecade != nil:
		year = *birthDecade + 5
	default:
		return models.CohortResult{
			Generation: models.GenUnknown,
			Confidence: unresolvedConfidence,
			Region:     regionLabel,
		}
	}

	idx := rangeIndex(year)
	cusp, adjacent := cuspFor(year, idx)

	confidence := baseYearConfidence
	if region != nil && *region != "" {
		confidence += regionBonus
	}
	if year < earliestPlausible || year > c.currentYear {
		confidence -= implausiblePenalty
	}
	confidence = clamp01(confidence)

	return models.CohortResult{
		Generation:      generations[idx].label,
		Confidence:      confidence,
		Region:          regionLabel,
		MicroGeneration: microGenerationFor(year),
		Alternatives:    rankAlternatives(year, idx, cusp, adjacent),
		Cusp:            cusp,
		ResolvedYear:    year,
	}
}

func rangeIndex(year int) int {
	for i := len(generations) - 1; i > 0; i-- {
		if year >= generations[i].from {
			return i
		}
	}
	return 0
}

// cuspFor flags a year within the boundary window of a neighboring cohort
// and names that neighbor.
func cuspFor(year, idx int) (bool, string) {
	g := generations[idx]
	if idx > 0 && year-g.from <= cuspWindow {
		return true, generations[idx-1].label
	}
	if idx < len(generations)-1 && g.to-year <= cuspWindow {
		return true, generations[idx+1].label
	}
	return false, ""
}

// rankAlternatives orders every other label by how near its boundary years
// sit to the resolved year; a cusp case always leads with the adjacent
// cohort.
func rankAlternatives(year, idx int, cusp bool, adjacent string) []string {
	type ranked struct {
		label string
		dist  int
		order int
	}
	var rest []ranked
	for i, g := range generations {
		if i == idx {
			continue
		}
		d := absInt(year - g.from)
		if toDist := absInt(year - g.to); toDist < d {
			d = toDist
		}
		rest = append(rest, ranked{label: g.label, dist: d, order: i})
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].dist != rest[j].dist {
			return rest[i].dist < rest[j].dist
		}
		return rest[i].order < rest[j].order
	})

	out := make([]string, 0, len(rest))
	if cusp {
		out = append(out, adjacent)
	}
	for _, r := range rest {
		if cusp && r.label == adjacent {
			continue
		}
		out = append(out, r.label)
	}
	return out
}

func microGenerationFor(year int) string {
	for _, m := range microGenerations {
		if year >= m.from && year <= m.to {
			return m.label
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
