package repository

import (
	"context"
	"errors"
	"sync"

	"capturehub/backend/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create for an email already in use.
var ErrDuplicateEmail = errors.New("user email already exists")

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.User
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.User)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

// Delete removes the user row only; callers wiring memory stores cascade explicitly.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}
