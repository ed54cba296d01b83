package repository

import (
	"context"

	"capturehub/backend/internal/membership/domain"
)

// Repository defines persistence for memberships. Implementations must be safe for concurrent use.
type Repository interface {
	// GetMembershipByUserAndOrg returns the membership, or nil if the user is not a member.
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	// GetPersonalMembership returns the user's personal-org membership, or nil if none exists.
	GetPersonalMembership(ctx context.Context, userID string) (*domain.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	// CreateMembership returns domain.ErrAlreadyMember if (user, org) already has a row.
	CreateMembership(ctx context.Context, m *domain.Membership) error
	CountPrivilegedByOrg(ctx context.Context, orgID string) (int64, error)
	// DeleteMembership loads the (user, org) row and the org's privileged count, runs guard, and
	// deletes the row only if guard returns nil, all as one atomic operation. Returns the deleted row.
	DeleteMembership(ctx context.Context, userID, orgID string, guard domain.DeleteGuard) (*domain.Membership, error)
}
