package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"capturehub/backend/internal/audit/domain"
	auditrepo "capturehub/backend/internal/audit/repository"
	"capturehub/backend/internal/clock"
	"capturehub/backend/internal/telemetry"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

type captureSink struct {
	got []*domain.AuditLog
}

func (c *captureSink) Emit(ctx context.Context, entry *domain.AuditLog) {
	c.got = append(c.got, entry)
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ipExtractor := func(ctx context.Context) string { return "192.168.1.1" }
	logger := NewLogger(repo, ipExtractor, WithClock(clock.NewFake(now)))

	logger.LogEvent(context.Background(), "org-1", "user-1", domain.ActionOrganizationSwitch, domain.ResourceSession, "to=org-1")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.OrgID != "org-1" {
		t.Errorf("org_id = %q, want %q", entry.OrgID, "org-1")
	}
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != domain.ActionOrganizationSwitch {
		t.Errorf("action = %q, want %q", entry.Action, domain.ActionOrganizationSwitch)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if !entry.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", entry.CreatedAt, now)
	}
}

func TestLogger_LogEvent_EmptyOrgUsesSentinel(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), "", "user-1", "a", "r", "")
	if repo.entries[0].OrgID != SentinelOrgID {
		t.Errorf("org_id = %q, want %q", repo.entries[0].OrgID, SentinelOrgID)
	}
}

func TestLogger_LogEvent_DefaultIPFromContext(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)
	logger.LogEvent(WithClientIP(context.Background(), "10.0.0.7"), "org-1", "u", "a", "r", "")
	logger.LogEvent(context.Background(), "org-1", "u", "a", "r", "")
	if repo.entries[0].IP != "10.0.0.7" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "10.0.0.7")
	}
	if repo.entries[1].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[1].IP, "unknown")
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	sink := &captureSink{}
	NewLogger(repo, nil, WithSink(sink)).LogEvent(context.Background(), "org-1", "u", "a", "r", "")
	if len(sink.got) != 1 {
		t.Errorf("sink entries = %d, want 1 even when the repository fails", len(sink.got))
	}
}

func TestLogger_LogEvent_Background(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	bg := telemetry.NewBackground(time.Second, nil, nil)
	logger := NewLogger(repo, nil, WithBackground(bg))

	ctx, cancel := context.WithCancel(context.Background())
	logger.LogEvent(ctx, "org-1", "u", domain.ActionTokenIssue, domain.ResourceToken, "")
	cancel()
	bg.Wait()

	if got := repo.Actions(); len(got) != 1 || got[0] != domain.ActionTokenIssue {
		t.Errorf("actions = %v, want [%s]", got, domain.ActionTokenIssue)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.LogEvent(context.Background(), "org", "u", "a", "r", "")
	NewLogger(nil, nil).LogEvent(context.Background(), "org", "u", "a", "r", "")
}
