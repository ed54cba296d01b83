package repository

import (
	"context"
	"time"

	"capturehub/backend/internal/apitoken/domain"
)

// Repository defines persistence for API tokens. Implementations must be safe for concurrent use.
type Repository interface {
	Save(ctx context.Context, t *domain.Token) error
	// GetByID returns the token for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Token, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Token, error)
	// UpdateLastUsed sets last_used_at to at unless it is already later.
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
	// Delete removes the token and reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
	HasAnyTokens(ctx context.Context) (bool, error)
}
