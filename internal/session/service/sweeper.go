package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"capturehub/backend/internal/telemetry"
)

// Sweeper periodically deletes expired sessions. Validation never depends on it; it only
// bounds table growth.
type Sweeper struct {
	sessions *SessionService
	interval time.Duration
	metrics  *telemetry.Metrics
	log      *zap.Logger
}

// NewSweeper returns a Sweeper that runs every interval. metrics and logger may be nil.
func NewSweeper(sessions *SessionService, interval time.Duration, metrics *telemetry.Metrics, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{sessions: sessions, interval: interval, metrics: metrics, log: logger}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes expired sessions and returns how many were removed. Errors are logged.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("session sweep failed", zap.Error(err))
			s.metrics.RecordBackgroundFailure(ctx, "session.sweep")
		}
		return 0
	}
	if n > 0 {
		s.log.Info("expired sessions deleted", zap.Int64("count", n))
	}
	s.metrics.RecordSweep(ctx, n)
	return n
}
