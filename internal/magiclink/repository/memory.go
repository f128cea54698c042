package repository

import (
	"context"
	"sync"
	"time"

	"careers-portal/backend/internal/magiclink/domain"
)

// MemoryRepository is an in-process Repository with the same claim semantics as the
// Postgres one. Used by tests and local runs without a database.
type MemoryRepository struct {
	mu     sync.Mutex
	byHash map[string]*domain.AccessToken
	byID   map[string]*domain.AccessToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byHash: make(map[string]*domain.AccessToken),
		byID:   make(map[string]*domain.AccessToken),
	}
}

func (r *MemoryRepository) Create(_ context.Context, t *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.byHash[t.TokenHash] = &cp
	r.byID[t.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByHash(_ context.Context, tokenHash string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) Claim(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok || t.UsedAt != nil {
		return false, nil
	}
	usedAt := at
	t.UsedAt = &usedAt
	return true, nil
}

// All returns copies of every stored token.
func (r *MemoryRepository) All() []*domain.AccessToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AccessToken, 0, len(r.byID))
	for _, t := range r.byID {
		cp := *t
		out = append(out, &cp)
	}
	return out
}
