// internal/models/response.go
package models

// Canonical question slots collected during onboarding. Free-form payloads
// from the process are normalized onto these before any analysis runs.
const (
	SlotBirthDate    = "birthDate"
	SlotBackground   = "background"
	SlotInfluences   = "influences"
	SlotCurrentFocus = "currentFocus"
	SlotFollowUp     = "followUp"
)

// RawResponseSet maps a question-slot identifier to the user's free-text
// answer. Insertion order is irrelevant; analysis runs over the union of
// everything said so far.
type RawResponseSet map[string]string

// Clone returns an independent copy so callers can append follow-up answers
// without mutating the set a prior analysis was derived from.
func (r RawResponseSet) Clone() RawResponseSet {
	out := make(RawResponseSet, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether the set holds no usable text at all.
func (r RawResponseSet) IsEmpty() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// StoredResponse is the persistence record emitted after each attempt:
// the raw text for one slot plus the signals derived from it.
type StoredResponse struct {
	ID         string `json:"id" db:"id"`
	SessionID  string `json:"sessionId" db:"session_id"`
	SlotID     string `json:"slotId" db:"slot_id"`
	Response   string `json:"response" db:"response"`
	SignalsRaw []byte `json:"-" db:"signals"`
	CreatedAt  string `json:"createdAt" db:"created_at"`
}
