package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"capturehub/backend/internal/audit"
	auditdomain "capturehub/backend/internal/audit/domain"
	authdomain "capturehub/backend/internal/auth/domain"
	"capturehub/backend/internal/clock"
	membershipdomain "capturehub/backend/internal/membership/domain"
	"capturehub/backend/internal/security"
	"capturehub/backend/internal/session/domain"
	"capturehub/backend/internal/session/repository"
	"capturehub/backend/internal/telemetry"
)

// ErrNoPersonalOrg is returned by CreateSession when the user has no personal organization to pin.
var ErrNoPersonalOrg = errors.New("user has no personal organization")

// MembershipRepo is the minimal membership repository needed by the session service.
type MembershipRepo interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
	GetPersonalMembership(ctx context.Context, userID string) (*membershipdomain.Membership, error)
}

// SessionService validates and maintains server-side sessions with sliding expiry.
type SessionService struct {
	sessions    repository.Repository
	memberships MembershipRepo
	clock       clock.Clock
	lifetime    time.Duration
	idle        time.Duration
	bg          *telemetry.Background
	audit       audit.AuditLogger
	log         *zap.Logger
}

// NewSessionService returns a SessionService. lifetime is how far activity pushes expires_at;
// idle is the minimum time since last activity before a refresh writes. bg, auditLogger and
// logger may be nil.
func NewSessionService(
	sessions repository.Repository,
	memberships MembershipRepo,
	clk clock.Clock,
	lifetime, idle time.Duration,
	bg *telemetry.Background,
	auditLogger audit.AuditLogger,
	logger *zap.Logger,
) *SessionService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bg == nil {
		bg = telemetry.NewBackground(0, logger, nil)
	}
	return &SessionService{
		sessions:    sessions,
		memberships: memberships,
		clock:       clk,
		lifetime:    lifetime,
		idle:        idle,
		bg:          bg,
		audit:       auditLogger,
		log:         logger,
	}
}

// ValidateSession returns the session if it exists and expires_at > now. Absent and expired
// sessions both yield (nil, nil); only a store failure yields an error (*authdomain.StorageError).
func (s *SessionService) ValidateSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.ValidateSessionDetailed(ctx, id)
	if errors.Is(err, authdomain.ErrNotFound) || errors.Is(err, authdomain.ErrExpired) {
		return nil, nil
	}
	return sess, err
}

// ValidateSessionDetailed is ValidateSession with the rejection kept: authdomain.ErrNotFound for
// an unknown id, authdomain.ErrExpired for an expired one. Expired rows are deleted in the
// background; the decision itself depends only on expires_at.
//
// The session's current organization is re-checked against the membership store on every call.
// A session left pointing at an org the user no longer belongs to is moved to the personal org
// before it is returned.
func (s *SessionService) ValidateSessionDetailed(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, authdomain.ErrNotFound
	}
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, authdomain.NewStorageError("get session", err)
	}
	if sess == nil {
		return nil, authdomain.ErrNotFound
	}
	if sess.IsExpired(s.clock.Now()) {
		s.bg.Go(ctx, "session.delete_expired", func(ctx context.Context) error {
			return s.sessions.Delete(ctx, id)
		})
		return nil, authdomain.ErrExpired
	}
	if err := s.ensureMember(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ensureMember repins sess to the user's personal org when its current org membership is gone.
// Without a personal org the session cannot be used and ErrNotFound is returned.
func (s *SessionService) ensureMember(ctx context.Context, sess *domain.Session) error {
	m, err := s.memberships.GetMembershipByUserAndOrg(ctx, sess.UserID, sess.CurrentOrgID)
	if err != nil {
		return authdomain.NewStorageError("get session membership", err)
	}
	if m != nil {
		return nil
	}
	personal, err := s.memberships.GetPersonalMembership(ctx, sess.UserID)
	if err != nil {
		return authdomain.NewStorageError("get personal membership", err)
	}
	if personal == nil {
		s.log.Error("session user has no personal organization",
			zap.String("user_id", sess.UserID), zap.String("org_id", sess.CurrentOrgID))
		return authdomain.ErrNotFound
	}
	if _, err := s.sessions.UpdateCurrentOrganization(ctx, sess.ID, personal.OrgID); err != nil {
		return authdomain.NewStorageError("repin session organization", err)
	}
	s.log.Warn("session organization no longer a membership, moved to personal org",
		zap.String("user_id", sess.UserID), zap.String("from_org_id", sess.CurrentOrgID), zap.String("to_org_id", personal.OrgID))
	sess.CurrentOrgID = personal.OrgID
	return nil
}

// RefreshSession slides the session's expiry if more than the idle threshold has passed since
// its last activity. Within the threshold it is a no-op. Expired sessions are never extended
// (domain.ErrSessionExpired). The store applies the write conditionally, so concurrent refreshes
// extend the session at most once.
func (s *SessionService) RefreshSession(ctx context.Context, id string) error {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return authdomain.NewStorageError("get session", err)
	}
	if sess == nil {
		return domain.ErrSessionNotFound
	}
	now := s.clock.Now()
	if sess.IsExpired(now) {
		return domain.ErrSessionExpired
	}
	if !sess.NeedsRefresh(now, s.idle) {
		return nil
	}
	if _, err := s.sessions.UpdateLastActive(ctx, id, now, now.Add(s.lifetime), now.Add(-s.idle)); err != nil {
		return authdomain.NewStorageError("refresh session", err)
	}
	return nil
}

// RefreshAsync schedules RefreshSession without blocking the caller. The write survives
// cancellation of ctx. A session that expired or was logged out in the meantime is not an error;
// other failures are logged and counted.
func (s *SessionService) RefreshAsync(ctx context.Context, id string) {
	s.bg.Go(ctx, "session.refresh", func(ctx context.Context) error {
		err := s.RefreshSession(ctx, id)
		if errors.Is(err, domain.ErrSessionExpired) || errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Debug("session refresh skipped", zap.Error(err))
			return nil
		}
		return err
	})
}

// UpdateCurrentOrganization points the session at orgID. Callers check membership first.
func (s *SessionService) UpdateCurrentOrganization(ctx context.Context, id, orgID string) error {
	ok, err := s.sessions.UpdateCurrentOrganization(ctx, id, orgID)
	if err != nil {
		return authdomain.NewStorageError("update session organization", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ReassignOrganization moves the user's sessions viewing fromOrgID to toOrgID. Used after the
// user leaves or is removed from fromOrgID.
func (s *SessionService) ReassignOrganization(ctx context.Context, userID, fromOrgID, toOrgID string) (int64, error) {
	n, err := s.sessions.MoveOrganization(ctx, userID, fromOrgID, toOrgID)
	if err != nil {
		return 0, authdomain.NewStorageError("reassign session organization", err)
	}
	return n, nil
}

// DeleteExpired removes every session expired at the current time.
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, authdomain.NewStorageError("delete expired sessions", err)
	}
	return n, nil
}

// CreateSession starts a session for a user who has just completed login. The session views
// preferredOrgID if given and the user is a member of it, otherwise the user's personal org.
func (s *SessionService) CreateSession(ctx context.Context, userID, preferredOrgID string) (*domain.Session, error) {
	orgID, err := s.initialOrganization(ctx, userID, preferredOrgID)
	if err != nil {
		return nil, err
	}
	id, err := security.GenerateSecret(security.DefaultSecretBytes)
	if err != nil {
		return nil, err
	}
	sess := domain.New(id, userID, orgID, s.clock.Now(), s.lifetime)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, authdomain.NewStorageError("create session", err)
	}
	s.logAudit(ctx, orgID, userID, auditdomain.ActionSessionLogin)
	return sess, nil
}

func (s *SessionService) initialOrganization(ctx context.Context, userID, preferredOrgID string) (string, error) {
	if preferredOrgID != "" {
		m, err := s.memberships.GetMembershipByUserAndOrg(ctx, userID, preferredOrgID)
		if err != nil {
			return "", authdomain.NewStorageError("get membership", err)
		}
		if m == nil {
			return "", membershipdomain.ErrNotMember
		}
		return preferredOrgID, nil
	}
	m, err := s.memberships.GetPersonalMembership(ctx, userID)
	if err != nil {
		return "", authdomain.NewStorageError("get personal membership", err)
	}
	if m == nil {
		s.log.Error("user has no personal organization", zap.String("user_id", userID))
		return "", ErrNoPersonalOrg
	}
	return m.OrgID, nil
}

// Logout deletes the session. Logging out an unknown session is not an error.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return authdomain.NewStorageError("get session", err)
	}
	if sess == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return authdomain.NewStorageError("delete session", err)
	}
	s.logAudit(ctx, sess.CurrentOrgID, sess.UserID, auditdomain.ActionSessionLogout)
	return nil
}

// DeleteAllForUser removes every session of the user and returns how many were removed.
func (s *SessionService) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, authdomain.NewStorageError("delete user sessions", err)
	}
	return n, nil
}

// ListForUser returns the user's unexpired sessions.
func (s *SessionService) ListForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	list, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, authdomain.NewStorageError("list sessions", err)
	}
	now := s.clock.Now()
	out := make([]*domain.Session, 0, len(list))
	for _, sess := range list {
		if !sess.IsExpired(now) {
			out = append(out, sess)
		}
	}
	return out, nil
}

// WaitIdle blocks until background refreshes and deletes scheduled so far have finished.
func (s *SessionService) WaitIdle() {
	s.bg.Wait()
}

func (s *SessionService) logAudit(ctx context.Context, orgID, userID, action string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, orgID, userID, action, auditdomain.ResourceSession, "")
}
