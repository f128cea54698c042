package repository

import (
	"context"
	"sync"

	"careers-portal/backend/internal/role/domain"
)

// MemoryRepository is an in-process Repository. Used by tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*domain.Record
	writes  int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*domain.Record)}
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[email]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.Email] = &cp
	r.writes++
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, email)
	r.writes++
	return nil
}

// Writes returns how many mutating calls were made.
func (r *MemoryRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
