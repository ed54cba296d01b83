package repository

import (
	"context"

	"capturehub/backend/internal/organization/domain"
)

// Repository defines persistence for organizations.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	// ListOrganizationsByIDs returns the organizations that exist among ids, in no particular order.
	ListOrganizationsByIDs(ctx context.Context, ids []string) ([]*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
}
