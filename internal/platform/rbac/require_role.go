// Package rbac turns a policy decision into the access error taxonomy.
package rbac

import (
	"context"
	"fmt"

	"careers-portal/backend/internal/platform/autherr"
	roledomain "careers-portal/backend/internal/role/domain"
	sessiondomain "careers-portal/backend/internal/session/domain"
)

// Authorizer decides role access. Implemented by the OPA policy engine.
type Authorizer interface {
	Allow(ctx context.Context, s *sessiondomain.Session, required roledomain.Role) (bool, error)
}

// RequireRole returns nil when s may access a resource requiring role. A nil session is
// ErrUnauthenticated; a denial or an evaluation failure is ErrUnauthorized.
func RequireRole(ctx context.Context, authz Authorizer, s *sessiondomain.Session, role roledomain.Role) error {
	if s == nil {
		return autherr.ErrUnauthenticated
	}
	if role == "" {
		return nil
	}
	ok, err := authz.Allow(ctx, s, role)
	if err != nil {
		return fmt.Errorf("%w: %w", autherr.ErrUnauthorized, err)
	}
	if !ok {
		return autherr.ErrUnauthorized
	}
	return nil
}
