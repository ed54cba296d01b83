package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	auditdomain "capturehub/backend/internal/audit/domain"
)

const auditLoggerName = "capturehub.audit"

// AuditSink exports audit entries as OTel log records. It implements audit.EventSink.
type AuditSink struct {
	logger otellog.Logger
}

// NewAuditSink returns an AuditSink that emits via provider. If provider is nil, returns nil, which
// the audit logger treats as no sink.
func NewAuditSink(provider *sdklog.LoggerProvider) *AuditSink {
	if provider == nil {
		return nil
	}
	return &AuditSink{logger: provider.Logger(auditLoggerName)}
}

// Emit converts entry to a log record and emits it. Empty fields are not added as attributes.
func (s *AuditSink) Emit(ctx context.Context, entry *auditdomain.AuditLog) {
	if s == nil || entry == nil {
		return
	}
	rec := otellog.Record{}
	rec.SetEventName(entry.Action)
	rec.SetSeverity(otellog.SeverityInfo)
	if !entry.CreatedAt.IsZero() {
		rec.SetTimestamp(entry.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if entry.Metadata != "" {
		rec.SetBody(otellog.StringValue(entry.Metadata))
	}
	for _, kv := range []struct{ key, value string }{
		{"audit.id", entry.ID},
		{"org_id", entry.OrgID},
		{"user_id", entry.UserID},
		{"action", entry.Action},
		{"resource", entry.Resource},
		{"client.ip", entry.IP},
	} {
		if kv.value != "" {
			rec.AddAttributes(otellog.String(kv.key, kv.value))
		}
	}
	s.logger.Emit(ctx, rec)
}
