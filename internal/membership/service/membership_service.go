package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"capturehub/backend/internal/audit"
	auditdomain "capturehub/backend/internal/audit/domain"
	authdomain "capturehub/backend/internal/auth/domain"
	"capturehub/backend/internal/clock"
	"capturehub/backend/internal/membership/domain"
	"capturehub/backend/internal/membership/repository"
	orgdomain "capturehub/backend/internal/organization/domain"
)

// ErrPersonalOrgExists is returned by CreatePersonalOrganization when the user already has one.
var ErrPersonalOrgExists = errors.New("user already has a personal organization")

// OrgRepo is the minimal organization repository needed by the membership service.
type OrgRepo interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
	ListOrganizationsByIDs(ctx context.Context, ids []string) ([]*orgdomain.Org, error)
	CreateOrganization(ctx context.Context, o *orgdomain.Org) error
}

// SessionUpdater is the part of the session service the membership service drives.
type SessionUpdater interface {
	UpdateCurrentOrganization(ctx context.Context, sessionID, orgID string) error
	ReassignOrganization(ctx context.Context, userID, fromOrgID, toOrgID string) (int64, error)
}

// OrganizationMembership is one entry of a user's organization list.
type OrganizationMembership struct {
	Org           *orgdomain.Org
	Role          domain.Role
	IsPersonalOrg bool
}

// MembershipService lists, switches between, joins and leaves organizations.
type MembershipService struct {
	memberships repository.Repository
	orgs        OrgRepo
	sessions    SessionUpdater
	clock       clock.Clock
	audit       audit.AuditLogger
	log         *zap.Logger
}

// NewMembershipService returns a MembershipService. auditLogger and logger may be nil.
func NewMembershipService(
	memberships repository.Repository,
	orgs OrgRepo,
	sessions SessionUpdater,
	clk clock.Clock,
	auditLogger audit.AuditLogger,
	logger *zap.Logger,
) *MembershipService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{
		memberships: memberships,
		orgs:        orgs,
		sessions:    sessions,
		clock:       clk,
		audit:       auditLogger,
		log:         logger,
	}
}

// ListOrganizations returns the organizations the user belongs to: the personal org first,
// then the rest by name.
func (s *MembershipService) ListOrganizations(ctx context.Context, userID string) ([]OrganizationMembership, error) {
	memberships, err := s.memberships.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, authdomain.NewStorageError("list memberships", err)
	}
	if len(memberships) == 0 {
		return []OrganizationMembership{}, nil
	}
	ids := make([]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.OrgID
	}
	orgs, err := s.orgs.ListOrganizationsByIDs(ctx, ids)
	if err != nil {
		return nil, authdomain.NewStorageError("list organizations", err)
	}
	byID := make(map[string]*orgdomain.Org, len(orgs))
	for _, o := range orgs {
		byID[o.ID] = o
	}

	out := make([]OrganizationMembership, 0, len(memberships))
	for _, m := range memberships {
		org, ok := byID[m.OrgID]
		if !ok {
			s.log.Error("membership references missing organization",
				zap.String("membership_id", m.ID), zap.String("org_id", m.OrgID))
			continue
		}
		out = append(out, OrganizationMembership{Org: org, Role: m.Role, IsPersonalOrg: m.IsPersonalOrg})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPersonalOrg != out[j].IsPersonalOrg {
			return out[i].IsPersonalOrg
		}
		ni, nj := strings.ToLower(out[i].Org.Name), strings.ToLower(out[j].Org.Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].Org.ID < out[j].Org.ID
	})
	return out, nil
}

// SwitchOrganization points the session at targetOrgID if the user is a member of it and returns
// the AuthContext the current request should continue with.
func (s *MembershipService) SwitchOrganization(ctx context.Context, sessionID, userID, targetOrgID string) (authdomain.AuthContext, error) {
	m, err := s.memberships.GetMembershipByUserAndOrg(ctx, userID, targetOrgID)
	if err != nil {
		return authdomain.AuthContext{}, authdomain.NewStorageError("get membership", err)
	}
	if m == nil {
		return authdomain.AuthContext{}, domain.ErrNotMember
	}
	if err := s.sessions.UpdateCurrentOrganization(ctx, sessionID, targetOrgID); err != nil {
		return authdomain.AuthContext{}, err
	}
	s.logAudit(ctx, targetOrgID, userID, auditdomain.ActionOrganizationSwitch, auditdomain.ResourceSession, "")
	return authdomain.AuthContext{
		OrgID:     targetOrgID,
		UserID:    userID,
		SessionID: sessionID,
		Method:    authdomain.MethodSession,
	}, nil
}

// LeaveOrganization removes the user's own membership. Personal orgs cannot be left, and the last
// owner or admin cannot leave; both checks run atomically with the delete. Sessions viewing the
// organization are moved to the user's personal org.
func (s *MembershipService) LeaveOrganization(ctx context.Context, userID, orgID string) error {
	if _, err := s.deleteMembership(ctx, userID, orgID, domain.LeaveGuard); err != nil {
		return err
	}
	s.reassignSessions(ctx, userID, orgID)
	s.logAudit(ctx, orgID, userID, auditdomain.ActionOrganizationLeave, auditdomain.ResourceOrganization, "")
	return nil
}

// RemoveMember removes targetUserID from orgID on behalf of actorUserID. The actor must be an
// owner or admin, only owners may remove owners, and the same guards as LeaveOrganization apply.
func (s *MembershipService) RemoveMember(ctx context.Context, actorUserID, orgID, targetUserID string) error {
	if actorUserID == targetUserID {
		return domain.ErrCannotRemoveSelf
	}
	actor, err := s.requirePrivileged(ctx, actorUserID, orgID)
	if err != nil {
		return err
	}
	guard := func(target *domain.Membership, privileged int64) error {
		if target != nil && target.Role == domain.RoleOwner && actor.Role != domain.RoleOwner {
			return domain.ErrInsufficientRole
		}
		return domain.LeaveGuard(target, privileged)
	}
	if _, err := s.deleteMembership(ctx, targetUserID, orgID, guard); err != nil {
		return err
	}
	s.reassignSessions(ctx, targetUserID, orgID)
	s.logAudit(ctx, orgID, actorUserID, auditdomain.ActionMembershipRemove, auditdomain.ResourceMembership, "user_id="+targetUserID)
	return nil
}

// AddMember adds targetUserID to orgID with role on behalf of actorUserID. The actor must be an
// owner or admin; only owners may grant owner.
func (s *MembershipService) AddMember(ctx context.Context, actorUserID, orgID, targetUserID string, role domain.Role) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	actor, err := s.requirePrivileged(ctx, actorUserID, orgID)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return nil, domain.ErrInsufficientRole
	}
	m := &domain.Membership{
		ID:       uuid.New().String(),
		UserID:   targetUserID,
		OrgID:    orgID,
		Role:     role,
		JoinedAt: s.clock.Now(),
	}
	if err := s.memberships.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, domain.ErrAlreadyMember) {
			return nil, err
		}
		return nil, authdomain.NewStorageError("create membership", err)
	}
	s.logAudit(ctx, orgID, actorUserID, auditdomain.ActionMembershipAdd, auditdomain.ResourceMembership,
		"user_id="+targetUserID+" role="+string(role))
	return m, nil
}

// CreatePersonalOrganization creates the user's permanent personal organization at signup.
func (s *MembershipService) CreatePersonalOrganization(ctx context.Context, userID, name string) (*orgdomain.Org, error) {
	existing, err := s.memberships.GetPersonalMembership(ctx, userID)
	if err != nil {
		return nil, authdomain.NewStorageError("get personal membership", err)
	}
	if existing != nil {
		return nil, ErrPersonalOrgExists
	}
	return s.createOrganization(ctx, userID, name, true)
}

// CreateOrganization creates a shared organization owned by ownerUserID.
func (s *MembershipService) CreateOrganization(ctx context.Context, ownerUserID, name string) (*orgdomain.Org, error) {
	return s.createOrganization(ctx, ownerUserID, name, false)
}

func (s *MembershipService) createOrganization(ctx context.Context, ownerUserID, name string, personal bool) (*orgdomain.Org, error) {
	now := s.clock.Now()
	org := &orgdomain.Org{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Status:    orgdomain.OrgStatusActive,
		CreatedAt: now,
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}
	if err := s.orgs.CreateOrganization(ctx, org); err != nil {
		return nil, authdomain.NewStorageError("create organization", err)
	}
	m := &domain.Membership{
		ID:            uuid.New().String(),
		UserID:        ownerUserID,
		OrgID:         org.ID,
		Role:          domain.RoleOwner,
		IsPersonalOrg: personal,
		JoinedAt:      now,
	}
	if err := s.memberships.CreateMembership(ctx, m); err != nil {
		return nil, authdomain.NewStorageError("create owner membership", err)
	}
	return org, nil
}

func (s *MembershipService) requirePrivileged(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	m, err := s.memberships.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, authdomain.NewStorageError("get membership", err)
	}
	if m == nil {
		return nil, domain.ErrNotMember
	}
	if !m.Role.IsPrivileged() {
		return nil, domain.ErrInsufficientRole
	}
	return m, nil
}

func (s *MembershipService) deleteMembership(ctx context.Context, userID, orgID string, guard domain.DeleteGuard) (*domain.Membership, error) {
	m, err := s.memberships.DeleteMembership(ctx, userID, orgID, guard)
	if err == nil {
		return m, nil
	}
	if isAuthorizationError(err) {
		return nil, err
	}
	return nil, authdomain.NewStorageError("delete membership", err)
}

// reassignSessions moves the user's sessions off orgID eagerly. A failure is only logged: session
// validation re-checks membership and repins any session still pointing at orgID.
func (s *MembershipService) reassignSessions(ctx context.Context, userID, orgID string) {
	personal, err := s.memberships.GetPersonalMembership(ctx, userID)
	if err != nil || personal == nil {
		s.log.Error("cannot resolve personal organization after leave",
			zap.String("user_id", userID), zap.String("org_id", orgID), zap.Error(err))
		return
	}
	if _, err := s.sessions.ReassignOrganization(ctx, userID, orgID, personal.OrgID); err != nil {
		s.log.Error("failed to move sessions after leave",
			zap.String("user_id", userID), zap.String("org_id", orgID), zap.Error(err))
	}
}

func (s *MembershipService) logAudit(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, orgID, userID, action, resource, metadata)
}

func isAuthorizationError(err error) bool {
	for _, target := range []error{
		domain.ErrNotMember,
		domain.ErrCannotLeavePersonalOrg,
		domain.ErrLastAdmin,
		domain.ErrCannotRemoveSelf,
		domain.ErrInsufficientRole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

