package rbac

import (
	"context"
	"errors"
	"testing"

	"capturehub/backend/internal/auth"
	authdomain "capturehub/backend/internal/auth/domain"
	"capturehub/backend/internal/membership/domain"
)

// mockMembershipGetter implements OrgMembershipGetter for tests.
type mockMembershipGetter struct {
	memberships map[string]*domain.Membership
	err         error
}

func (m *mockMembershipGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[userID+":"+orgID], nil
}

func withIdentity(userID, orgID string) context.Context {
	return auth.WithAuth(context.Background(), &auth.AuthContext{UserID: userID, OrgID: orgID, Method: auth.MethodSession})
}

func TestRequireOrgMemberAndAdmin(t *testing.T) {
	getter := &mockMembershipGetter{
		memberships: map[string]*domain.Membership{
			"owner:org-1":  {ID: "m1", UserID: "owner", OrgID: "org-1", Role: domain.RoleOwner},
			"admin:org-1":  {ID: "m2", UserID: "admin", OrgID: "org-1", Role: domain.RoleAdmin},
			"member:org-1": {ID: "m3", UserID: "member", OrgID: "org-1", Role: domain.RoleMember},
		},
	}
	testCases := []struct {
		name       string
		ctx        context.Context
		wantMember error
		wantAdmin  error
	}{
		{"owner", withIdentity("owner", "org-1"), nil, nil},
		{"admin", withIdentity("admin", "org-1"), nil, nil},
		{"member", withIdentity("member", "org-1"), nil, domain.ErrInsufficientRole},
		{"removed since session pinned org", withIdentity("gone", "org-1"), domain.ErrNotMember, domain.ErrNotMember},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := RequireOrgMember(tc.ctx, getter); !errors.Is(err, tc.wantMember) {
				t.Errorf("RequireOrgMember = %v, want %v", err, tc.wantMember)
			}
			if _, _, err := RequireOrgAdmin(tc.ctx, getter); !errors.Is(err, tc.wantAdmin) {
				t.Errorf("RequireOrgAdmin = %v, want %v", err, tc.wantAdmin)
			}
		})
	}
}

func TestRequireOrgMember_ReturnsIdentity(t *testing.T) {
	getter := &mockMembershipGetter{memberships: map[string]*domain.Membership{
		"user-1:org-1": {ID: "m1", UserID: "user-1", OrgID: "org-1", Role: domain.RoleMember},
	}}
	ac, m, err := RequireOrgMember(withIdentity("user-1", "org-1"), getter)
	if err != nil {
		t.Fatalf("RequireOrgMember: %v", err)
	}
	if ac.OrgID != "org-1" || ac.UserID != "user-1" {
		t.Errorf("AuthContext = %+v", ac)
	}
	if m.Role != domain.RoleMember {
		t.Errorf("role = %q, want %q", m.Role, domain.RoleMember)
	}
}

func TestRequireOrgMember_Unauthenticated(t *testing.T) {
	_, _, err := RequireOrgMember(context.Background(), &mockMembershipGetter{})
	u, ok := authdomain.AsUnauthorized(err)
	if !ok {
		t.Fatalf("err = %v, want *Unauthorized", err)
	}
	if u.Reason != authdomain.ReasonNotAuthenticated {
		t.Errorf("reason = %q, want %q", u.Reason, authdomain.ReasonNotAuthenticated)
	}
}

func TestRequireOrgMember_StorageError(t *testing.T) {
	getter := &mockMembershipGetter{err: errors.New("db down")}
	_, _, err := RequireOrgAdmin(withIdentity("owner", "org-1"), getter)
	if !authdomain.IsStorageError(err) {
		t.Errorf("err = %v, want StorageError", err)
	}
}
