package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultBackgroundTimeout bounds a single background write when none is configured.
const DefaultBackgroundTimeout = 5 * time.Second

// Background runs fire-and-forget writes (session refresh, token last-used, audit rows) in their
// own goroutines. Each write gets a context that keeps the caller's values (trace span) but not its
// cancellation, bounded by the configured timeout, so a finished request does not abort it.
// Errors are logged and counted, never returned. Wait blocks until no write is pending.
// Go and Wait may be called concurrently, and a write may schedule another.
type Background struct {
	timeout time.Duration
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
}

// NewBackground returns a Background runner. timeout <= 0 uses DefaultBackgroundTimeout; logger and
// metrics may be nil.
func NewBackground(timeout time.Duration, logger *zap.Logger, metrics *Metrics) *Background {
	if timeout <= 0 {
		timeout = DefaultBackgroundTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Background{timeout: timeout, logger: logger, metrics: metrics}
	b.idle = sync.NewCond(&b.mu)
	return b
}

// Go schedules fn. op names the write for logs and the failure counter.
func (b *Background) Go(parent context.Context, op string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	detached := context.WithoutCancel(parent)
	b.mu.Lock()
	b.pending++
	b.mu.Unlock()
	go func() {
		defer b.done()
		ctx, cancel := context.WithTimeout(detached, b.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.logger.Warn("background write failed", zap.String("op", op), zap.Error(err))
			b.metrics.RecordBackgroundFailure(detached, op)
		}
	}()
}

func (b *Background) done() {
	b.mu.Lock()
	b.pending--
	if b.pending == 0 {
		b.idle.Broadcast()
	}
	b.mu.Unlock()
}

// Wait blocks until the pending count reaches zero. Writes scheduled while waiting are waited for too.
func (b *Background) Wait() {
	b.mu.Lock()
	for b.pending > 0 {
		b.idle.Wait()
	}
	b.mu.Unlock()
}
