package repository

import (
	"context"
	"sync"
	"time"

	"careers-portal/backend/internal/session/domain"
)

// MemoryRepository is an in-process Repository. Used by tests.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*domain.Session
	byHash map[string]*domain.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*domain.Session),
		byHash: make(map[string]*domain.Session),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	r.byHash[s.SessionHash] = &cp
	return nil
}

func (r *MemoryRepository) GetByHash(_ context.Context, sessionHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[sessionHash]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) RevokeActiveByEmail(_ context.Context, email string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.byID {
		if s.Email == email && s.RevokedAt == nil {
			revokedAt := at
			s.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) UpdateLastSeen(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok && s.RevokedAt == nil {
		seen := at
		s.LastSeenAt = &seen
	}
	return nil
}

// ByEmail returns copies of every session for email.
func (r *MemoryRepository) ByEmail(email string) []*domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.byID {
		if s.Email == email {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

// Get returns a copy of the session with id, or nil.
func (r *MemoryRepository) Get(id string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}
