// internal/models/session.go
package models

import "time"

// OnboardingSession ties a follow-up sequence to a user. Identity and
// cookie handling live outside this engine; the session record exists so
// stored responses and results can be joined back to a user.
type OnboardingSession struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Session status values.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// IsTerminal reports whether the session can no longer accept answers.
func (s *OnboardingSession) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionAbandoned
}

// SessionRepository defines session data access; persistence is owned by
// the surrounding application.
type SessionRepository interface {
	Create(session *OnboardingSession) error
	FindByID(id string) (*OnboardingSession, error)
	Update(session *OnboardingSession) error
}
