// internal/engine/extract/extract.go
package extract

import (
	"sort"
	"strings"
	"time"

	"cohort-workers/internal/models"
)

// Extractor turns a block of free text into structured signals. It is pure:
// no side effects, never fails, and any input (including empty) yields a
// valid, possibly all-absent, signal set.
type Extractor struct {
	currentYear int
}

// New returns an extractor anchored to the current calendar year.
func New() *Extractor {
	return &Extractor{currentYear: time.Now().Year()}
}

// NewAt anchors the plausibility window to a fixed year. Used by tests.
func NewAt(year int) *Extractor {
	return &Extractor{currentYear: year}
}

// Extract scans the text with the ordered rule table and returns everything
// that matched. Timeframe rules are tiered: an exact year beats a quoted
// two-digit year, which beats a decade expression.
func (e *Extractor) Extract(text string) models.ExtractedSignals {
	var signals models.ExtractedSignals
	if strings.TrimSpace(text) == "" {
		return signals
	}

	for _, rule := range timeframeRules {
		year, decade, ok := rule.resolve(text, e.currentYear)
		if !ok {
			continue
		}
		if year != 0 {
			signals.BirthYear = &year
		} else {
			signals.BirthDecade = &decade
		}
		break
	}

	signals.Locations = e.extractLocations(text)
	signals.Interests = capturePhrases(text, interestCues)
	signals.CulturalMarkers = e.extractCulturalMarkers(text)

	return signals
}

// extractLocations collects distinct matches ordered by first appearance in
// the text, regardless of which cue pattern found them.
func (e *Extractor) extractLocations(text string) []string {
	type hit struct {
		pos   int
		place string
	}
	var hits []hit

	for _, re := range locationPatterns {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			if idx[2] < 0 {
				continue
			}
			place := strings.TrimSpace(text[idx[2]:idx[3]])
			if place == "" {
				continue
			}
			hits = append(hits, hit{pos: idx[2], place: place})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var out []string
	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.place] {
			continue
		}
		seen[h.place] = true
		out = append(out, h.place)
	}
	return out
}

// extractCulturalMarkers combines explicit identity cues with the fixed
// era/class lexicons. Matches are reported by marker key, first hit wins
// per key.
func (e *Extractor) extractCulturalMarkers(text string) []string {
	out := capturePhrases(text, culturalCues)
	lower := strings.ToLower(text)

	seen := make(map[string]bool, len(out))
	for _, v := range out {
		seen[v] = true
	}

	for _, lex := range markerLexicons {
		for _, entry := range lex {
			if seen[entry.key] {
				continue
			}
			for _, phrase := range entry.phrases {
				if strings.Contains(lower, phrase) {
					out = append(out, entry.key)
					seen[entry.key] = true
					break
				}
			}
		}
	}
	return out
}

// capturePhrases grabs the short phrase following any of the given lexical
// cues, up to the next sentence break.
func capturePhrases(text string, cues []phraseCue) []string {
	var out []string
	seen := make(map[string]bool)

	for _, cue := range cues {
		for _, m := range cue.re.FindAllStringSubmatch(text, -1) {
			phrase := strings.TrimSpace(m[1])
			phrase = strings.Trim(phrase, ".,;:!?")
			if phrase == "" || len(phrase) > maxPhraseLen {
				continue
			}
			key := strings.ToLower(phrase)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, phrase)
		}
	}
	return out
}
