package engine

import (
	"context"

	roledomain "careers-portal/backend/internal/role/domain"
	sessiondomain "careers-portal/backend/internal/session/domain"
)

// Evaluator decides whether a session may access a resource requiring a role.
type Evaluator interface {
	// Allow reports whether s satisfies required. An empty required role admits any
	// authenticated session.
	Allow(ctx context.Context, s *sessiondomain.Session, required roledomain.Role) (bool, error)
}
