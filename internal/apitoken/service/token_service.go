package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"capturehub/backend/internal/apitoken/domain"
	"capturehub/backend/internal/apitoken/repository"
	"capturehub/backend/internal/audit"
	auditdomain "capturehub/backend/internal/audit/domain"
	authdomain "capturehub/backend/internal/auth/domain"
	"capturehub/backend/internal/clock"
	membershipdomain "capturehub/backend/internal/membership/domain"
	orgdomain "capturehub/backend/internal/organization/domain"
	"capturehub/backend/internal/security"
	"capturehub/backend/internal/telemetry"
	userdomain "capturehub/backend/internal/user/domain"
)

var (
	// ErrTokenNotFound is returned by Revoke for unknown tokens and tokens owned by someone else.
	ErrTokenNotFound = errors.New("api token not found")
	ErrNameRequired  = errors.New("api token name is required")
)

// UserRepo is the minimal user repository needed by the token service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// OrgRepo is the minimal organization repository needed by the token service.
type OrgRepo interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// MembershipRepo is the minimal membership repository needed by the token service.
type MembershipRepo interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
}

// Hasher hashes and verifies token secrets.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) bool
}

// AuthResult is a successfully validated token with its owning user and organization.
type AuthResult struct {
	Token *domain.Token
	User  *userdomain.User
	Org   *orgdomain.Org
}

// TokenService validates, issues and revokes API tokens.
type TokenService struct {
	tokens      repository.Repository
	users       UserRepo
	orgs        OrgRepo
	memberships MembershipRepo
	hasher      Hasher
	clock       clock.Clock
	bg          *telemetry.Background
	audit       audit.AuditLogger
	log         *zap.Logger
}

// NewTokenService returns a TokenService. bg, auditLogger and logger may be nil.
func NewTokenService(
	tokens repository.Repository,
	users UserRepo,
	orgs OrgRepo,
	memberships MembershipRepo,
	hasher Hasher,
	clk clock.Clock,
	bg *telemetry.Background,
	auditLogger audit.AuditLogger,
	logger *zap.Logger,
) *TokenService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bg == nil {
		bg = telemetry.NewBackground(0, logger, nil)
	}
	return &TokenService{
		tokens:      tokens,
		users:       users,
		orgs:        orgs,
		memberships: memberships,
		hasher:      hasher,
		clock:       clk,
		bg:          bg,
		audit:       auditLogger,
		log:         logger,
	}
}

// ValidateToken authenticates a presented "<id>:<secret>" credential.
// Returns authdomain.ErrMalformedCredential without touching the store for a badly formed value,
// authdomain.ErrNotFound for an unknown id, a wrong secret, an owner that no longer resolves, or
// an owner who is no longer a member of the token's organization, and a *authdomain.StorageError
// when a store fails. On success last_used_at is bumped in the background; that write never
// affects the result.
func (s *TokenService) ValidateToken(ctx context.Context, plaintext string) (*AuthResult, error) {
	id, secret, err := domain.Parse(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authdomain.ErrMalformedCredential, err)
	}
	tok, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, authdomain.NewStorageError("get api token", err)
	}
	if tok == nil || !s.hasher.Compare(secret, tok.TokenHash) {
		return nil, authdomain.ErrNotFound
	}

	user, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		return nil, authdomain.NewStorageError("get token owner", err)
	}
	if user == nil {
		s.log.Error("api token references missing user",
			zap.String("token_id", tok.ID), zap.String("user_id", tok.UserID))
		return nil, authdomain.ErrNotFound
	}
	if !user.IsActive() {
		s.log.Info("api token owner is disabled", zap.String("token_id", tok.ID), zap.String("user_id", user.ID))
		return nil, authdomain.ErrNotFound
	}

	org, err := s.orgs.GetOrganizationByID(ctx, tok.OrgID)
	if err != nil {
		return nil, authdomain.NewStorageError("get token organization", err)
	}
	if org == nil {
		s.log.Error("api token references missing organization",
			zap.String("token_id", tok.ID), zap.String("org_id", tok.OrgID))
		return nil, authdomain.ErrNotFound
	}
	if !org.IsActive() {
		s.log.Info("api token organization is suspended", zap.String("token_id", tok.ID), zap.String("org_id", org.ID))
		return nil, authdomain.ErrNotFound
	}
	m, err := s.memberships.GetMembershipByUserAndOrg(ctx, tok.UserID, tok.OrgID)
	if err != nil {
		return nil, authdomain.NewStorageError("get token membership", err)
	}
	if m == nil {
		s.log.Info("api token owner is no longer a member of its organization",
			zap.String("token_id", tok.ID), zap.String("user_id", tok.UserID), zap.String("org_id", tok.OrgID))
		return nil, authdomain.ErrNotFound
	}

	usedAt := s.clock.Now()
	s.bg.Go(ctx, "api_token.last_used", func(ctx context.Context) error {
		return s.tokens.UpdateLastUsed(ctx, tok.ID, usedAt)
	})
	return &AuthResult{Token: tok, User: user, Org: org}, nil
}

// Issue creates a token for userID scoped to orgID and returns the plaintext "<id>:<secret>".
// The plaintext is not recoverable afterwards. userID must be a member of orgID.
func (s *TokenService) Issue(ctx context.Context, userID, orgID, name string) (string, *domain.Token, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, ErrNameRequired
	}
	m, err := s.memberships.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return "", nil, authdomain.NewStorageError("get membership", err)
	}
	if m == nil {
		return "", nil, membershipdomain.ErrNotMember
	}
	secret, err := security.GenerateSecret(security.DefaultSecretBytes)
	if err != nil {
		return "", nil, err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return "", nil, err
	}
	tok := &domain.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		OrgID:     orgID,
		Name:      name,
		TokenHash: hash,
		CreatedAt: s.clock.Now(),
	}
	if err := tok.Validate(); err != nil {
		return "", nil, err
	}
	if err := s.tokens.Save(ctx, tok); err != nil {
		return "", nil, authdomain.NewStorageError("save api token", err)
	}
	s.logAudit(ctx, orgID, userID, auditdomain.ActionTokenIssue, "token_id="+tok.ID)
	return domain.Format(tok.ID, secret), tok, nil
}

// List returns the user's tokens. Hashes are included; callers must not expose them.
func (s *TokenService) List(ctx context.Context, userID string) ([]*domain.Token, error) {
	list, err := s.tokens.ListByUser(ctx, userID)
	if err != nil {
		return nil, authdomain.NewStorageError("list api tokens", err)
	}
	return list, nil
}

// Revoke deletes the token if userID owns it. Revoked tokens fail validation immediately.
func (s *TokenService) Revoke(ctx context.Context, userID, tokenID string) error {
	tok, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return authdomain.NewStorageError("get api token", err)
	}
	if tok == nil || tok.UserID != userID {
		return ErrTokenNotFound
	}
	deleted, err := s.tokens.Delete(ctx, tokenID)
	if err != nil {
		return authdomain.NewStorageError("delete api token", err)
	}
	if !deleted {
		return ErrTokenNotFound
	}
	s.logAudit(ctx, tok.OrgID, userID, auditdomain.ActionTokenRevoke, "token_id="+tokenID)
	return nil
}

// HasAnyTokens reports whether any token exists. Used by bootstrap seeding.
func (s *TokenService) HasAnyTokens(ctx context.Context) (bool, error) {
	ok, err := s.tokens.HasAnyTokens(ctx)
	if err != nil {
		return false, authdomain.NewStorageError("count api tokens", err)
	}
	return ok, nil
}

// WaitIdle blocks until background last-used writes scheduled so far have finished.
func (s *TokenService) WaitIdle() {
	s.bg.Wait()
}

func (s *TokenService) logAudit(ctx context.Context, orgID, userID, action, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, orgID, userID, action, auditdomain.ResourceToken, metadata)
}
