package repository

import (
	"context"
	"time"

	"careers-portal/backend/internal/magiclink/domain"
)

// Repository defines persistence for access tokens. Rows are never deleted.
type Repository interface {
	Create(ctx context.Context, t *domain.AccessToken) error
	// GetByHash returns the token with the given hash, or nil if none exists.
	GetByHash(ctx context.Context, tokenHash string) (*domain.AccessToken, error)
	// Claim marks the token used at `at` only if it is still unused. It reports whether
	// this call performed the transition.
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
}
