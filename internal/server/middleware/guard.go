// Package middleware holds the gin middleware of the HTTP API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/platform/rbac"
	roledomain "careers-portal/backend/internal/role/domain"
	sessiondomain "careers-portal/backend/internal/session/domain"
)

// LoginPath is where page requests are sent when they need a session.
const LoginPath = "/login"

const sessionKey = "session"

// SessionValidator resolves a raw cookie value to an active session.
type SessionValidator interface {
	ValidateSession(ctx context.Context, raw string) (*sessiondomain.Session, error)
}

// Guard admits requests carrying an active session in cookieName. When requiredRole is set
// the policy engine must also allow the session's role; the default policy lets admin
// sessions through every role requirement, so a candidate route also admits admins.
// API requests are answered with a JSON status; page requests are redirected to the login page.
func Guard(sessions SessionValidator, authz rbac.Authorizer, cookieName string, requiredRole roledomain.Role, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		raw, _ := c.Cookie(cookieName)
		s, err := sessions.ValidateSession(ctx, raw)
		if err != nil {
			if errors.Is(err, autherr.ErrDependencyUnavailable) {
				logger.Error("guard: session lookup failed", zap.Error(err))
				if IsAPIRequest(c) {
					c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "unavailable"})
					return
				}
			}
			denyUnauthenticated(c)
			return
		}

		if err := rbac.RequireRole(ctx, authz, s, requiredRole); err != nil {
			logger.Warn("guard: role not permitted",
				zap.String("role", string(s.Role)),
				zap.String("required", string(requiredRole)),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			denyForbidden(c)
			return
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

// SessionFromContext returns the session stored by Guard.
func SessionFromContext(c *gin.Context) (*sessiondomain.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*sessiondomain.Session)
	return s, ok && s != nil
}

// IsAPIRequest reports whether c expects a JSON answer rather than a page.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func denyUnauthenticated(c *gin.Context) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}
	c.Redirect(http.StatusSeeOther, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

func denyForbidden(c *gin.Context) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}
	c.Redirect(http.StatusSeeOther, LoginPath+"?error=forbidden")
	c.Abort()
}
