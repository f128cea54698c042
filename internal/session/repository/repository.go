package repository

import (
	"context"
	"time"

	"careers-portal/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Sessions are revoked, never deleted.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByHash returns the session with the given hash, or nil if none exists.
	GetByHash(ctx context.Context, sessionHash string) (*domain.Session, error)
	// RevokeActiveByEmail sets revoked_at on every unrevoked session for email and returns
	// how many were revoked.
	RevokeActiveByEmail(ctx context.Context, email string, at time.Time) (int64, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}
