package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"capturehub/backend/internal/apitoken/domain"
)

// ErrDuplicateID is returned by MemoryRepository.Save when the id is taken.
var ErrDuplicateID = errors.New("api token id already exists")

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]*domain.Token
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*domain.Token)}
}

func (r *MemoryRepository) Save(ctx context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.ID]; ok {
		return ErrDuplicateID
	}
	r.tokens[t.ID] = cloneToken(t)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	return cloneToken(t), nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Token
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, cloneToken(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil
	}
	if t.LastUsedAt == nil || t.LastUsedAt.Before(at) {
		at := at
		t.LastUsedAt = &at
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[id]; !ok {
		return false, nil
	}
	delete(r.tokens, id)
	return true, nil
}

func (r *MemoryRepository) HasAnyTokens(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens) > 0, nil
}

func cloneToken(t *domain.Token) *domain.Token {
	cp := *t
	if t.LastUsedAt != nil {
		lu := *t.LastUsedAt
		cp.LastUsedAt = &lu
	}
	return &cp
}
