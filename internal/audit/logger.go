// Package audit records security-relevant actions (logins, organization switches, membership
// and token changes) to the audit repository and, optionally, as OTel log records.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"capturehub/backend/internal/audit/domain"
	auditrepo "capturehub/backend/internal/audit/repository"
	"capturehub/backend/internal/clock"
	"capturehub/backend/internal/telemetry"
)

// SentinelOrgID is the org_id used for audit events that have no org.
const SentinelOrgID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// EventSink receives every audit entry after it is built, e.g. to export it as an OTel log record.
type EventSink interface {
	Emit(ctx context.Context, entry *domain.AuditLog)
}

// Option configures a Logger.
type Option func(*Logger)

// WithSink also sends each entry to sink.
func WithSink(sink EventSink) Option { return func(l *Logger) { l.sink = sink } }

// WithBackground writes entries on bg instead of on the caller's goroutine.
func WithBackground(bg *telemetry.Background) Option { return func(l *Logger) { l.bg = bg } }

// WithClock sets the clock used for CreatedAt.
func WithClock(c clock.Clock) Option { return func(l *Logger) { l.clock = c } }

// WithZap sets the logger used to report write failures.
func WithZap(z *zap.Logger) Option { return func(l *Logger) { l.log = z } }

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	sink        EventSink
	bg          *telemetry.Background
	clock       clock.Clock
	log         *zap.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then the IP stored by WithClientIP is used, or "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, opts ...Option) *Logger {
	l := &Logger{repo: repo, ipExtractor: ipExtractor, clock: clock.System{}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	if l.ipExtractor == nil {
		l.ipExtractor = ClientIPFromContext
	}
	return l
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        l.ipExtractor(ctx),
		Metadata:  metadata,
		CreatedAt: l.clock.Now().UTC(),
	}
	if l.sink != nil {
		l.sink.Emit(ctx, entry)
	}
	if l.bg != nil {
		l.bg.Go(ctx, "audit.write", func(ctx context.Context) error {
			return l.repo.Create(ctx, entry)
		})
		return
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("audit: failed to log event",
			zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}

type clientIPKey struct{}

// WithClientIP stores the caller's IP for the default IPExtractor.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the IP stored by WithClientIP, or "unknown".
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

