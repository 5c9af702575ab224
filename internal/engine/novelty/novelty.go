// internal/engine/novelty/novelty.go
package novelty

import "strings"

// DefaultThreshold is the Jaccard similarity above which a candidate
// question counts as a repeat of one already asked.
const DefaultThreshold = 0.7

// Filter rejects candidate questions that are too close to the history.
// Deterministic and stateless; O(len(history) * len(question)).
type Filter struct {
	threshold float64
}

func NewFilter(threshold float64) *Filter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Filter{threshold: threshold}
}

// IsTooSimilar reports whether the candidate exceeds the similarity
// threshold against any previously asked question.
func (f *Filter) IsTooSimilar(candidate string, history []string) bool {
	candidateSet := wordSet(candidate)
	if len(candidateSet) == 0 {
		return false
	}
	for _, prior := range history {
		if jaccard(candidateSet, wordSet(prior)) > f.threshold {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(strings.TrimSpace(s))) {
		out[w] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
