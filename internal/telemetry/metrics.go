// Package telemetry records auth decisions and background-write health as OTel metrics, and runs
// best-effort background writes detached from the request that scheduled them.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "capturehub/auth"

// Outcome labels for auth.decisions.
const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the auth instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	decisions          metric.Int64Counter
	backgroundFailures metric.Int64Counter
	sessionsSwept      metric.Int64Counter
}

// NewMetrics creates the auth instruments on mp. A nil mp uses a no-op provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)
	decisions, err := meter.Int64Counter("auth.decisions",
		metric.WithDescription("Authentication decisions by credential method and outcome"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("auth.background_write.failures",
		metric.WithDescription("Best-effort background writes that failed"))
	if err != nil {
		return nil, err
	}
	swept, err := meter.Int64Counter("auth.sessions.swept",
		metric.WithDescription("Expired sessions deleted by the sweeper"))
	if err != nil {
		return nil, err
	}
	return &Metrics{decisions: decisions, backgroundFailures: failures, sessionsSwept: swept}, nil
}

// RecordDecision counts one authentication decision. method is "session", "token" or "none".
func (m *Metrics) RecordDecision(ctx context.Context, method, outcome string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

// RecordBackgroundFailure counts one failed background write of kind op.
func (m *Metrics) RecordBackgroundFailure(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.backgroundFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordSweep counts sessions deleted by one sweep.
func (m *Metrics) RecordSweep(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsSwept.Add(ctx, n)
}
