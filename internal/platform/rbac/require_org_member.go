// Package rbac resolves the caller's role in the organization the request acts in.
package rbac

import (
	"context"

	"capturehub/backend/internal/auth"
	authdomain "capturehub/backend/internal/auth/domain"
	"capturehub/backend/internal/membership/domain"
)

// OrgMembershipGetter returns a user's membership in an org. Used to resolve the caller's role.
type OrgMembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// RequireOrgMember ensures the request is authenticated and the caller is still a member of the
// context org (any role). Returns the caller's membership on success. Errors are an
// *authdomain.Unauthorized, domain.ErrNotMember or an *authdomain.StorageError.
func RequireOrgMember(ctx context.Context, getter OrgMembershipGetter) (*auth.AuthContext, *domain.Membership, error) {
	ac, ok := auth.FromContext(ctx)
	if !ok || ac.OrgID == "" || ac.UserID == "" {
		return nil, nil, &authdomain.Unauthorized{Reason: authdomain.ReasonNotAuthenticated}
	}
	m, err := getter.GetMembershipByUserAndOrg(ctx, ac.UserID, ac.OrgID)
	if err != nil {
		return nil, nil, authdomain.NewStorageError("get membership", err)
	}
	if m == nil {
		return nil, nil, domain.ErrNotMember
	}
	return ac, m, nil
}
