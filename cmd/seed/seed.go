package main

import (
	"context"
	"errors"

	"github.com/google/uuid"

	tokendomain "capturehub/backend/internal/apitoken/domain"
	"capturehub/backend/internal/clock"
	membershipservice "capturehub/backend/internal/membership/service"
	orgdomain "capturehub/backend/internal/organization/domain"
	userdomain "capturehub/backend/internal/user/domain"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

type organizationCreator interface {
	CreatePersonalOrganization(ctx context.Context, userID, name string) (*orgdomain.Org, error)
	CreateOrganization(ctx context.Context, ownerUserID, name string) (*orgdomain.Org, error)
}

type tokenIssuer interface {
	HasAnyTokens(ctx context.Context) (bool, error)
	Issue(ctx context.Context, userID, orgID, name string) (string, *tokendomain.Token, error)
}

type seeder struct {
	users       userStore
	memberships organizationCreator
	tokens      tokenIssuer
	clock       clock.Clock
}

// Seed creates the bootstrap user (if missing) with a personal organization, a shared organization
// the user owns, and an API token scoped to it. Returns "" without writing if any token exists.
func (s *seeder) Seed(ctx context.Context, email, name, orgName string) (string, error) {
	has, err := s.tokens.HasAnyTokens(ctx)
	if err != nil {
		return "", err
	}
	if has {
		return "", nil
	}
	email = userdomain.NormalizeEmail(email)
	if email == "" {
		return "", errors.New("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		now := s.clock.Now()
		user = &userdomain.User{
			ID:        uuid.New().String(),
			Email:     email,
			Name:      name,
			Status:    userdomain.UserStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := user.Validate(); err != nil {
			return "", err
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", err
		}
	}
	if _, err := s.memberships.CreatePersonalOrganization(ctx, user.ID, name); err != nil && !errors.Is(err, membershipservice.ErrPersonalOrgExists) {
		return "", err
	}
	org, err := s.memberships.CreateOrganization(ctx, user.ID, orgName)
	if err != nil {
		return "", err
	}
	plaintext, _, err := s.tokens.Issue(ctx, user.ID, org.ID, "bootstrap")
	if err != nil {
		return "", err
	}
	return plaintext, nil
}
