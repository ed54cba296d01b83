package rbac

import (
	"context"

	"capturehub/backend/internal/auth"
	"capturehub/backend/internal/membership/domain"
)

// RequireOrgAdmin is RequireOrgMember plus role owner or admin; otherwise domain.ErrInsufficientRole.
func RequireOrgAdmin(ctx context.Context, getter OrgMembershipGetter) (*auth.AuthContext, *domain.Membership, error) {
	ac, m, err := RequireOrgMember(ctx, getter)
	if err != nil {
		return nil, nil, err
	}
	if !m.Role.IsPrivileged() {
		return nil, nil, domain.ErrInsufficientRole
	}
	return ac, m, nil
}
