// internal/engine/extract/rules.go
package extract

import (
	"regexp"
	"strconv"
)

const maxPhraseLen = 60

// Timeframe patterns form an ordered rule table: the first tier that
// resolves wins, and within a tier the first in-range match wins. New
// patterns are new table rows, not new code paths.
type timeframeRule struct {
	name    string
	resolve func(text string, currentYear int) (year, decade int, ok bool)
}

var timeframeRules = []timeframeRule{
	{name: "exact-year", resolve: resolveExactYear},
	{name: "quoted-year", resolve: resolveQuotedYear},
	{name: "decade", resolve: resolveDecade},
}

var (
	exactYearRe  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	quotedYearRe = regexp.MustCompile(`'(\d{2})\b`)
	// "1980s", optionally qualified with early/mid/late.
	decadeFullRe = regexp.MustCompile(`\b(?:early |mid |late )?((?:19|20)\d)0s\b`)
	// "80s", "'90s", "00s" with the century inferred.
	decadeShortRe = regexp.MustCompile(`\b(?:early |mid |late )?'?(\d0)s\b`)
)

func resolveExactYear(text string, currentYear int) (int, int, bool) {
	for _, m := range exactYearRe.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		if y >= 1900 && y <= currentYear {
			return y, 0, true
		}
	}
	return 0, 0, false
}

// resolveQuotedYear handles shorthand like "'85": values above 50 read as
// 1900s, the rest as 2000s.
func resolveQuotedYear(text string, _ int) (int, int, bool) {
	m := quotedYearRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	v, _ := strconv.Atoi(m[1])
	if v > 50 {
		return 1900 + v, 0, true
	}
	return 2000 + v, 0, true
}

func resolveDecade(text string, _ int) (int, int, bool) {
	if m := decadeFullRe.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		return 0, d * 10, true
	}
	if m := decadeShortRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(m[1])
		if v > 50 {
			return 0, 1900 + v, true
		}
		return 0, 2000 + v, true
	}
	return 0, 0, false
}

// Location cues: capitalized noun phrases after place-introducing
// prepositions/verbs, or after "city/town/country/state of". No alias
// resolution, no real-world validation.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:[Gg]rew up in|[Ww]as born in|[Bb]orn in|[Rr]aised in|[Mm]oved to|[Ll]ived? in|[Ff]rom|[Ii]n)\s+([A-Z][A-Za-z'-]*(?:\s+[A-Z][A-Za-z'-]*)*)`),
	regexp.MustCompile(`(?:[Cc]ity|[Tt]own|[Cc]ountry|[Ss]tate)\s+of\s+([A-Z][A-Za-z'-]*(?:\s+[A-Z][A-Za-z'-]*)*)`),
}

// Lower-precision phrase capture for the enrichment phase.
type phraseCue struct {
	name string
	re   *regexp.Regexp
}

var interestCues = []phraseCue{
	{name: "interested-in", re: regexp.MustCompile(`(?i)interested in\s+([^.,;!?\n]+)`)},
	{name: "passionate-about", re: regexp.MustCompile(`(?i)passionate about\s+([^.,;!?\n]+)`)},
}

var culturalCues = []phraseCue{
	{name: "identify-with", re: regexp.MustCompile(`(?i)identify with\s+([^.,;!?\n]+)`)},
	{name: "part-of", re: regexp.MustCompile(`(?i)part of\s+([^.,;!?\n]+)`)},
}

// Era and class lexicons. Matches report the marker key, not the raw phrase.
type markerEntry struct {
	key     string
	phrases []string
}

var technologyMarkers = []markerEntry{
	{key: "pre-digital", phrases: []string{"before computers", "no internet", "landline"}},
	{key: "early-digital", phrases: []string{"dial-up", "first computer", "early internet"}},
	{key: "mobile-transition", phrases: []string{"flip phone", "cell phone", "nokia"}},
	{key: "smartphone-era", phrases: []string{"iphone", "smartphone", "apps"}},
	{key: "social-media-era", phrases: []string{"facebook", "social media", "instagram"}},
}

var socioEconomicMarkers = []markerEntry{
	{key: "working-class", phrases: []string{"working class", "working-class", "blue collar", "factory", "labor"}},
	{key: "middle-class", phrases: []string{"middle class", "suburban", "comfortable"}},
	{key: "upper-middle-class", phrases: []string{"upper middle", "privileged", "well-off"}},
	{key: "lower-income", phrases: []string{"poor", "struggling", "poverty"}},
}

var markerLexicons = [][]markerEntry{technologyMarkers, socioEconomicMarkers}
