package repository

import (
	"context"

	"careers-portal/backend/internal/audit/domain"
)

// Repository defines persistence for audit events. Events are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Event, error)
}
