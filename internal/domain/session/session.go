package session

import "time"

// Step names a state inside a workflow's finite-state machine.
type Step string

// Session is the single active workflow-in-progress for one actor.
type Session struct {
	ActorID        string    `json:"actorId"`
	Step           Step      `json:"step"`
	Payload        Payload   `json:"payload"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// New creates a session positioned at the workflow's first step.
func New(actorID string, step Step, payload Payload) *Session {
	now := time.Now().UTC()
	return &Session{
		ActorID:        actorID,
		Step:           step,
		Payload:        payload,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// Touch refreshes the activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

// Expired reports whether the session has been idle past ttl.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastActivityAt) > ttl
}
