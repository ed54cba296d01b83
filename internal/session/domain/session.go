package domain

import (
	"errors"
	"time"
)

// Session is a server-side login session identified by the opaque id carried in the session cookie.
// Invariant: CreatedAt <= LastActiveAt <= ExpiresAt.
type Session struct {
	ID           string
	UserID       string
	CurrentOrgID string // organization the session is currently viewing
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActiveAt time.Time
}

// State is the lifecycle position of a session at a given instant.
type State string

const (
	// StateActive: usable, and the idle threshold has passed so the next activity extends it.
	StateActive State = "active"
	// StateIdle: usable, refreshed recently enough that activity needs no write.
	StateIdle State = "idle"
	// StateExpired is terminal; no operation makes an expired session usable again.
	StateExpired State = "expired"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// IsExpired reports whether the session is unusable at now (ExpiresAt <= now).
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NeedsRefresh reports whether activity at now should slide the expiry: the session is not expired
// and more than idle has passed since LastActiveAt.
func (s *Session) NeedsRefresh(now time.Time, idle time.Duration) bool {
	return !s.IsExpired(now) && now.Sub(s.LastActiveAt) > idle
}

// State returns the session's state at now for the given idle threshold.
func (s *Session) State(now time.Time, idle time.Duration) State {
	switch {
	case s.IsExpired(now):
		return StateExpired
	case s.NeedsRefresh(now, idle):
		return StateActive
	default:
		return StateIdle
	}
}

// New returns a session created at now that expires after lifetime.
func New(id, userID, orgID string, now time.Time, lifetime time.Duration) *Session {
	return &Session{
		ID:           id,
		UserID:       userID,
		CurrentOrgID: orgID,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(lifetime),
	}
}
