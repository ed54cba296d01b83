package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"capturehub/backend/internal/session/domain"
)

// ErrDuplicateID is returned by MemoryRepository.Create when the id is taken.
var ErrDuplicateID = errors.New("session id already exists")

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return ErrDuplicateID
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.After(out[j].LastActiveAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateLastActive(ctx context.Context, id string, now, expiresAt, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(now) || !s.LastActiveAt.Before(staleBefore) {
		return false, nil
	}
	s.LastActiveAt = now
	s.ExpiresAt = expiresAt
	return true, nil
}

func (r *MemoryRepository) UpdateCurrentOrganization(ctx context.Context, id, orgID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	s.CurrentOrgID = orgID
	return true, nil
}

func (r *MemoryRepository) MoveOrganization(ctx context.Context, userID, fromOrgID, toOrgID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.CurrentOrgID == fromOrgID {
			s.CurrentOrgID = toOrgID
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemoryRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(s *domain.Session) bool { return s.UserID == userID }), nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(s *domain.Session) bool { return s.IsExpired(now) }), nil
}

func (r *MemoryRepository) deleteWhere(match func(*domain.Session) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if match(s) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
