package domain

import (
	"time"

	roledomain "careers-portal/backend/internal/role/domain"
)

// Session is a long-lived login. The cookie carries the raw secret; only its hash is stored.
type Session struct {
	ID          string
	SessionHash string
	Email       string
	Role        roledomain.Role
	ExpiresAt   time.Time
	RevokedAt   *time.Time // nil when not revoked
	LastSeenAt  *time.Time
	IP          string
	UserAgent   string
	Meta        string
	CreatedAt   time.Time
}

// Active reports whether the session is unrevoked and unexpired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
