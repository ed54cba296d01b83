package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"capturehub/backend/internal/apitoken/domain"
	tokenrepo "capturehub/backend/internal/apitoken/repository"
	auditdomain "capturehub/backend/internal/audit/domain"
	authdomain "capturehub/backend/internal/auth/domain"
	"capturehub/backend/internal/clock"
	membershipdomain "capturehub/backend/internal/membership/domain"
	membershiprepo "capturehub/backend/internal/membership/repository"
	orgdomain "capturehub/backend/internal/organization/domain"
	orgrepo "capturehub/backend/internal/organization/repository"
	"capturehub/backend/internal/security"
	userdomain "capturehub/backend/internal/user/domain"
	userrepo "capturehub/backend/internal/user/repository"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc         *TokenService
	tokens      *tokenrepo.MemoryRepository
	users       *userrepo.MemoryRepository
	orgs        *orgrepo.MemoryRepository
	memberships *membershiprepo.MemoryRepository
	clock       *clock.Fake
	audit       *recordingAudit
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	r.actions = append(r.actions, action)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		tokens:      tokenrepo.NewMemoryRepository(),
		users:       userrepo.NewMemoryRepository(),
		orgs:        orgrepo.NewMemoryRepository(),
		memberships: membershiprepo.NewMemoryRepository(),
		clock:       clock.NewFake(t0),
		audit:       &recordingAudit{},
	}
	if err := f.users.Create(ctx, &userdomain.User{ID: "user-1", Email: "a@example.com", Status: userdomain.UserStatusActive}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := f.orgs.CreateOrganization(ctx, &orgdomain.Org{ID: "org-1", Name: "Acme", Status: orgdomain.OrgStatusActive}); err != nil {
		t.Fatalf("create org: %v", err)
	}
	if err := f.memberships.CreateMembership(ctx, &membershipdomain.Membership{ID: "m1", UserID: "user-1", OrgID: "org-1", Role: membershipdomain.RoleOwner}); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	f.svc = NewTokenService(f.tokens, f.users, f.orgs, f.memberships,
		security.NewHasher(bcrypt.MinCost), f.clock, nil, f.audit, nil)
	return f
}

func (f *fixture) issue(t *testing.T) (string, *domain.Token) {
	t.Helper()
	plaintext, tok, err := f.svc.Issue(context.Background(), "user-1", "org-1", "cli")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return plaintext, tok
}

func TestValidateToken_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plaintext, tok := f.issue(t)

	res, err := f.svc.ValidateToken(ctx, plaintext)
	if err != nil {
		t.Fatalf("ValidateToken(correct): %v", err)
	}
	if res.Token.ID != tok.ID || res.User.ID != "user-1" || res.Org.ID != "org-1" {
		t.Errorf("result = token %q user %q org %q", res.Token.ID, res.User.ID, res.Org.ID)
	}

	if _, err := f.svc.ValidateToken(ctx, tok.ID+":wrong"); !errors.Is(err, authdomain.ErrNotFound) {
		t.Errorf("ValidateToken(wrong) err = %v, want ErrNotFound", err)
	}

	if err := f.svc.Revoke(ctx, "user-1", tok.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := f.svc.ValidateToken(ctx, plaintext); !errors.Is(err, authdomain.ErrNotFound) {
		t.Errorf("ValidateToken after revoke err = %v, want ErrNotFound", err)
	}
	f.svc.WaitIdle()
}

func TestValidateToken_AdvancesLastUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plaintext, tok := f.issue(t)

	f.clock.Advance(time.Hour)
	validatedAt := f.clock.Now()
	if _, err := f.svc.ValidateToken(ctx, plaintext); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	f.svc.WaitIdle()

	stored, _ := f.tokens.GetByID(ctx, tok.ID)
	if stored.LastUsedAt == nil || stored.LastUsedAt.Before(validatedAt) {
		t.Errorf("LastUsedAt = %v, want >= %v", stored.LastUsedAt, validatedAt)
	}
}

func TestValidateToken_MutatedSecretLooksLikeUnknownID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plaintext, tok := f.issue(t)
	_, secret, _ := domain.Parse(plaintext)

	for i := range secret {
		mutated := []byte(secret)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		_, errWrong := f.svc.ValidateToken(ctx, tok.ID+":"+string(mutated))
		_, errUnknown := f.svc.ValidateToken(ctx, "no-such-id:"+string(mutated))
		if errWrong != errUnknown || errWrong != authdomain.ErrNotFound {
			t.Fatalf("position %d: wrong secret err = %v, unknown id err = %v; want identical ErrNotFound", i, errWrong, errUnknown)
		}
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	f := newFixture(t)
	f.svc.tokens = nil // any store access would panic
	for _, in := range []string{"", "nocolon", ":secret", "id:", ":"} {
		if _, err := f.svc.ValidateToken(context.Background(), in); !errors.Is(err, authdomain.ErrMalformedCredential) {
			t.Errorf("ValidateToken(%q) err = %v, want ErrMalformedCredential", in, err)
		}
	}
}

func TestValidateToken_SecretMayContainColons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hash, _ := security.NewHasher(bcrypt.MinCost).Hash("a:b:c")
	_ = f.tokens.Save(ctx, &domain.Token{ID: "tok", UserID: "user-1", OrgID: "org-1", Name: "n", TokenHash: hash, CreatedAt: t0})
	if _, err := f.svc.ValidateToken(ctx, "tok:a:b:c"); err != nil {
		t.Errorf("ValidateToken: %v", err)
	}
	f.svc.WaitIdle()
}

func TestValidateToken_OwnerIntegrity(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(ctx context.Context, f *fixture)
	}{
		{"missing user", func(ctx context.Context, f *fixture) { _ = f.users.Delete(ctx, "user-1") }},
		{"disabled user", func(ctx context.Context, f *fixture) {
			_ = f.users.Delete(ctx, "user-1")
			_ = f.users.Create(ctx, &userdomain.User{ID: "user-1", Email: "a@example.com", Status: userdomain.UserStatusDisabled})
		}},
		{"suspended org", func(ctx context.Context, f *fixture) {
			_ = f.orgs.CreateOrganization(ctx, &orgdomain.Org{ID: "org-2", Name: "Gone", Status: orgdomain.OrgStatusSuspended})
			_ = f.memberships.CreateMembership(ctx, &membershipdomain.Membership{ID: "m2", UserID: "user-1", OrgID: "org-2", Role: membershipdomain.RoleMember})
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			orgID := "org-1"
			if tc.name == "suspended org" {
				orgID = "org-2"
			}
			tc.setup(ctx, f)
			plaintext, _, err := f.svc.Issue(ctx, "user-1", orgID, "cli")
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			if _, err := f.svc.ValidateToken(ctx, plaintext); !errors.Is(err, authdomain.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestValidateToken_RejectedOnceMembershipEnds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plaintext, _ := f.issue(t)
	if _, err := f.svc.ValidateToken(ctx, plaintext); err != nil {
		t.Fatalf("ValidateToken while member: %v", err)
	}

	allow := func(*membershipdomain.Membership, int64) error { return nil }
	if _, err := f.memberships.DeleteMembership(ctx, "user-1", "org-1", allow); err != nil {
		t.Fatalf("DeleteMembership: %v", err)
	}
	if _, err := f.svc.ValidateToken(ctx, plaintext); !errors.Is(err, authdomain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	f.svc.WaitIdle()
}

type failingMembershipRepo struct{ err error }

func (r failingMembershipRepo) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error) {
	return nil, r.err
}

func TestValidateToken_MembershipStorageError(t *testing.T) {
	f := newFixture(t)
	plaintext, _ := f.issue(t)
	f.svc.memberships = failingMembershipRepo{err: errors.New("db down")}

	if _, err := f.svc.ValidateToken(context.Background(), plaintext); !authdomain.IsStorageError(err) {
		t.Errorf("err = %v, want StorageError", err)
	}
}

type failingTokenRepo struct {
	*tokenrepo.MemoryRepository
	getErr    error
	updateErr error
}

func (r *failingTokenRepo) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.MemoryRepository.GetByID(ctx, id)
}

func (r *failingTokenRepo) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryRepository.UpdateLastUsed(ctx, id, at)
}

func TestValidateToken_StorageErrorIsNotRejection(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection refused")
	f.svc.tokens = &failingTokenRepo{MemoryRepository: f.tokens, getErr: boom}

	_, err := f.svc.ValidateToken(context.Background(), "tok:secret")
	if !authdomain.IsStorageError(err) {
		t.Fatalf("err = %v, want StorageError", err)
	}
	if errors.Is(err, authdomain.ErrNotFound) {
		t.Error("storage failure must not look like an unknown token")
	}
	if !errors.Is(err, boom) {
		t.Error("storage error should wrap the store error")
	}
}

func TestValidateToken_LastUsedFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plaintext, _ := f.issue(t)
	f.svc.tokens = &failingTokenRepo{MemoryRepository: f.tokens, updateErr: errors.New("timeout")}

	if _, err := f.svc.ValidateToken(ctx, plaintext); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	f.svc.WaitIdle()
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plaintext, tok := f.issue(t)

	if !strings.HasPrefix(plaintext, tok.ID+":") {
		t.Errorf("plaintext %q should start with %q", plaintext, tok.ID+":")
	}
	_, secret, _ := domain.Parse(plaintext)
	if tok.TokenHash == secret || strings.Contains(tok.TokenHash, secret) {
		t.Error("stored hash must not contain the plaintext secret")
	}
	if tok.OrgID != "org-1" || !tok.CreatedAt.Equal(t0) {
		t.Errorf("token = %+v", tok)
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != auditdomain.ActionTokenIssue {
		t.Errorf("audit = %v", f.audit.actions)
	}

	if _, _, err := f.svc.Issue(ctx, "user-1", "org-9", "cli"); !errors.Is(err, membershipdomain.ErrNotMember) {
		t.Errorf("Issue for foreign org err = %v, want ErrNotMember", err)
	}
	if _, _, err := f.svc.Issue(ctx, "user-1", "org-1", "  "); !errors.Is(err, ErrNameRequired) {
		t.Errorf("Issue blank name err = %v, want ErrNameRequired", err)
	}
}

func TestRevoke_OnlyOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, tok := f.issue(t)

	if err := f.svc.Revoke(ctx, "user-2", tok.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Revoke by other user err = %v, want ErrTokenNotFound", err)
	}
	if err := f.svc.Revoke(ctx, "user-1", "missing"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Revoke missing err = %v, want ErrTokenNotFound", err)
	}
	list, err := f.svc.List(ctx, "user-1")
	if err != nil || len(list) != 1 {
		t.Errorf("List = %d tokens, %v; want 1", len(list), err)
	}
}

func TestHasAnyTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if ok, err := f.svc.HasAnyTokens(ctx); err != nil || ok {
		t.Errorf("HasAnyTokens = %v, %v; want false", ok, err)
	}
	f.issue(t)
	if ok, _ := f.svc.HasAnyTokens(ctx); !ok {
		t.Error("HasAnyTokens should be true after Issue")
	}
}
