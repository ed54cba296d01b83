package repository

import (
	"context"
	"sort"
	"sync"

	"capturehub/backend/internal/membership/domain"
)

// MemoryRepository is an in-memory Repository for tests and local development. DeleteMembership
// holds the write lock across guard and delete, matching the Postgres transaction.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*domain.Membership // keyed by membership id
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]*domain.Membership)}
}

func (r *MemoryRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m := r.findLocked(userID, orgID); m != nil {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetPersonalMembership(ctx context.Context, userID string) (*domain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.rows {
		if m.UserID == userID && m.IsPersonalOrg {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.filter(func(m *domain.Membership) bool { return m.UserID == userID }), nil
}

func (r *MemoryRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	return r.filter(func(m *domain.Membership) bool { return m.OrgID == orgID }), nil
}

func (r *MemoryRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findLocked(m.UserID, m.OrgID) != nil {
		return domain.ErrAlreadyMember
	}
	cp := *m
	r.rows[m.ID] = &cp
	return nil
}

func (r *MemoryRepository) CountPrivilegedByOrg(ctx context.Context, orgID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countPrivilegedLocked(orgID), nil
}

func (r *MemoryRepository) DeleteMembership(ctx context.Context, userID, orgID string, guard domain.DeleteGuard) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.findLocked(userID, orgID)
	var snapshot *domain.Membership
	if target != nil {
		cp := *target
		snapshot = &cp
	}
	if err := guard(snapshot, r.countPrivilegedLocked(orgID)); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrNotMember
	}
	delete(r.rows, target.ID)
	return snapshot, nil
}

func (r *MemoryRepository) findLocked(userID, orgID string) *domain.Membership {
	for _, m := range r.rows {
		if m.UserID == userID && m.OrgID == orgID {
			return m
		}
	}
	return nil
}

func (r *MemoryRepository) countPrivilegedLocked(orgID string) int64 {
	var n int64
	for _, m := range r.rows {
		if m.OrgID == orgID && m.Role.IsPrivileged() {
			n++
		}
	}
	return n
}

func (r *MemoryRepository) filter(keep func(*domain.Membership) bool) []*domain.Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Membership
	for _, m := range r.rows {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}
