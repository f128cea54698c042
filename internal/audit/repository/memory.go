package repository

import (
	"context"
	"sync"

	"careers-portal/backend/internal/audit/domain"
)

// MemoryRepository keeps events in insertion order. Used by tests.
type MemoryRepository struct {
	mu     sync.Mutex
	events []*domain.Event
	// Err, when set, is returned by Create and ListRecent.
	Err error
}

func (r *MemoryRepository) Create(_ context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *MemoryRepository) ListRecent(_ context.Context, limit int) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*domain.Event, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.events[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Events returns all stored events in insertion order.
func (r *MemoryRepository) Events() []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Event, len(r.events))
	for i, e := range r.events {
		cp := *e
		out[i] = &cp
	}
	return out
}
