// Package auth resolves the identity of a request from its session cookie and bearer token, and
// exposes that identity to gin handlers and gRPC methods.
package auth

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	tokenservice "capturehub/backend/internal/apitoken/service"
	"capturehub/backend/internal/audit"
	auditdomain "capturehub/backend/internal/audit/domain"
	"capturehub/backend/internal/auth/domain"
	sessiondomain "capturehub/backend/internal/session/domain"
	"capturehub/backend/internal/telemetry"
)

const tracerName = "capturehub/auth"

// SessionValidator is the part of the session service the resolver needs.
type SessionValidator interface {
	ValidateSessionDetailed(ctx context.Context, id string) (*sessiondomain.Session, error)
	RefreshAsync(ctx context.Context, id string)
}

// TokenValidator is the part of the token service the resolver needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, plaintext string) (*tokenservice.AuthResult, error)
}

// Resolver applies session-over-token precedence to a request's credentials.
type Resolver struct {
	sessions SessionValidator
	tokens   TokenValidator
	audit    audit.AuditLogger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	log      *zap.Logger
}

// NewResolver returns a Resolver. auditLogger, metrics and logger may be nil.
func NewResolver(sessions SessionValidator, tokens TokenValidator, auditLogger audit.AuditLogger, metrics *telemetry.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		sessions: sessions,
		tokens:   tokens,
		audit:    auditLogger,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
		log:      logger,
	}
}

// Authenticate resolves creds into an AuthContext.
//
// A valid session wins and any bearer token is ignored. An invalid session falls back to the
// bearer token when one is present. Rejections are returned as *domain.Unauthorized whose reason
// names the credential that failed; store failures are returned as *domain.StorageError and are
// never reported as a rejection.
func (r *Resolver) Authenticate(ctx context.Context, creds Credentials) (*AuthContext, error) {
	ctx, span := r.tracer.Start(ctx, "auth.Authenticate")
	defer span.End()

	ac, err := r.authenticate(ctx, creds)

	method := "none"
	switch {
	case ac != nil:
		method = string(ac.Method)
	case creds.HasToken():
		method = string(MethodToken)
	case creds.SessionID != "":
		method = string(MethodSession)
	}
	span.SetAttributes(attribute.String("auth.method", method))

	var unauthorized *domain.Unauthorized
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("auth.user_id", ac.UserID), attribute.String("auth.org_id", ac.OrgID))
		r.metrics.RecordDecision(ctx, method, telemetry.OutcomeAllowed)
	case errors.As(err, &unauthorized):
		span.SetAttributes(attribute.String("auth.reason", string(unauthorized.Reason)))
		r.metrics.RecordDecision(ctx, method, telemetry.OutcomeRejected)
		r.log.Debug("request rejected", zap.String("reason", string(unauthorized.Reason)), zap.Error(unauthorized.Cause))
	default:
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "credential store unavailable")
		r.metrics.RecordDecision(ctx, method, telemetry.OutcomeError)
		r.log.Error("authentication failed on storage", zap.String("method", method), zap.Error(err))
	}
	return ac, err
}

func (r *Resolver) authenticate(ctx context.Context, creds Credentials) (*AuthContext, error) {
	if creds.SessionID != "" {
		sess, sessErr := r.sessions.ValidateSessionDetailed(ctx, creds.SessionID)
		if sessErr == nil {
			r.sessions.RefreshAsync(ctx, sess.ID)
			return &AuthContext{
				OrgID:     sess.CurrentOrgID,
				UserID:    sess.UserID,
				SessionID: sess.ID,
				Method:    MethodSession,
			}, nil
		}
		if !isRejection(sessErr) {
			return nil, sessErr
		}
		if !creds.HasToken() {
			return nil, &domain.Unauthorized{Reason: domain.ReasonInvalidSession, Cause: sessErr}
		}
		ac, err := r.fromToken(ctx, creds)
		if err == nil {
			r.logAudit(ctx, ac, "session_error="+rejectionClass(sessErr))
		}
		return ac, err
	}
	if creds.HasToken() {
		return r.fromToken(ctx, creds)
	}
	return nil, &domain.Unauthorized{Reason: domain.ReasonNotAuthenticated}
}

func (r *Resolver) fromToken(ctx context.Context, creds Credentials) (*AuthContext, error) {
	if creds.MalformedAuthorization {
		return nil, &domain.Unauthorized{Reason: domain.ReasonInvalidToken, Cause: domain.ErrMalformedCredential}
	}
	res, err := r.tokens.ValidateToken(ctx, creds.BearerToken)
	if err != nil {
		if isRejection(err) {
			return nil, &domain.Unauthorized{Reason: domain.ReasonInvalidToken, Cause: err}
		}
		return nil, err
	}
	return &AuthContext{
		OrgID:   res.Token.OrgID,
		UserID:  res.Token.UserID,
		TokenID: res.Token.ID,
		Method:  MethodToken,
	}, nil
}

func (r *Resolver) logAudit(ctx context.Context, ac *AuthContext, metadata string) {
	if r.audit == nil {
		return
	}
	r.audit.LogEvent(ctx, ac.OrgID, ac.UserID, auditdomain.ActionFallbackToToken, auditdomain.ResourceToken,
		"token_id="+ac.TokenID+" "+metadata)
}

// rejectionClass names a credential rejection for audit metadata. It never carries error text.
func rejectionClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "unknown"
}

// isRejection reports whether err is a credential rejection rather than a store failure.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrExpired) ||
		errors.Is(err, domain.ErrMalformedCredential)
}
