package repository

import (
	"context"

	"careers-portal/backend/internal/role/domain"
)

// Reader resolves role grants. Login only ever reads.
type Reader interface {
	// GetByEmail returns the grant for email, or nil if none exists.
	GetByEmail(ctx context.Context, email string) (*domain.Record, error)
}

// Repository adds the operator-only writes used by cmd/grantrole.
type Repository interface {
	Reader
	Upsert(ctx context.Context, r *domain.Record) error
	Delete(ctx context.Context, email string) error
}
