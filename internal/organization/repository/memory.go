package repository

import (
	"context"
	"sync"

	"capturehub/backend/internal/organization/domain"
)

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu   sync.RWMutex
	orgs map[string]*domain.Org
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orgs: make(map[string]*domain.Org)}
}

func (r *MemoryRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) ListOrganizationsByIDs(ctx context.Context, ids []string) ([]*domain.Org, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Org
	for _, id := range ids {
		if o, ok := r.orgs[id]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orgs[o.ID] = &cp
	return nil
}
