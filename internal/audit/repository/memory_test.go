package repository

import (
	"context"
	"testing"
	"time"

	"capturehub/backend/internal/audit/domain"
)

func TestMemoryRepository_ListByOrg_Paginates(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = r.Create(ctx, &domain.AuditLog{ID: string(rune('a' + i)), OrgID: "o1", Action: "x", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	_ = r.Create(ctx, &domain.AuditLog{ID: "other", OrgID: "o2", CreatedAt: base})

	page, err := r.ListByOrg(ctx, "o1", 2, 1)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(page) != 2 || page[0].ID != "d" || page[1].ID != "c" {
		t.Errorf("page = %v", ids(page))
	}
	if rest, _ := r.ListByOrg(ctx, "o1", 10, 10); rest != nil {
		t.Errorf("offset past end = %v, want nil", ids(rest))
	}
}

func ids(list []*domain.AuditLog) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}
