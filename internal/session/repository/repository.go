package repository

import (
	"context"
	"time"

	"capturehub/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Implementations must be safe for concurrent use.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found. Expired rows are returned as stored.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// UpdateLastActive sets last_active_at = now and expires_at = expiresAt only while the row is
	// unexpired at now and last_active_at is before staleBefore. Reports whether the row changed.
	UpdateLastActive(ctx context.Context, id string, now, expiresAt, staleBefore time.Time) (bool, error)
	// UpdateCurrentOrganization reports whether a session row was updated.
	UpdateCurrentOrganization(ctx context.Context, id, orgID string) (bool, error)
	// MoveOrganization repoints the user's sessions viewing fromOrgID to toOrgID.
	MoveOrganization(ctx context.Context, userID, fromOrgID, toOrgID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes sessions with expires_at <= now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
