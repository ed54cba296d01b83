package repository

import (
	"context"

	"capturehub/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Delete removes the user; sessions, tokens and memberships cascade.
	Delete(ctx context.Context, id string) error
}
