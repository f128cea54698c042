// Package server assembles the HTTP router and the gRPC health listener.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	healthhandler "careers-portal/backend/internal/health/handler"
	identityhandler "careers-portal/backend/internal/identity/handler"
	"careers-portal/backend/internal/platform/rbac"
	roledomain "careers-portal/backend/internal/role/domain"
	"careers-portal/backend/internal/server/middleware"
)

// RouterDeps holds what the HTTP router mounts.
type RouterDeps struct {
	Access   *identityhandler.Handler
	Health   *healthhandler.Server
	Sessions middleware.SessionValidator
	Authz    rbac.Authorizer
	// TrustedProxies lists proxies allowed to set X-Forwarded-For. Nil trusts none.
	TrustedProxies []string
	// CookieName is the session cookie read by the guard.
	CookieName string
	// ServiceName names spans created by otelgin. Empty disables HTTP tracing.
	ServiceName string
	Logger      *zap.Logger
}

// NewRouter returns the gin engine with every access route mounted.
func NewRouter(d RouterDeps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("router: trusted proxies: %w", err)
	}
	r.Use(middleware.Recovery(d.Logger))
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Client())

	guard := func(role roledomain.Role) gin.HandlerFunc {
		return middleware.Guard(d.Sessions, d.Authz, d.CookieName, role, d.Logger)
	}

	r.GET("/healthz", d.Health.Healthz)
	r.GET("/auth/verify", d.Access.VerifyPage)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/request-link", d.Access.RequestLink)
		auth.POST("/verify", d.Access.Verify)
		auth.GET("/session", d.Access.Session)
		auth.POST("/logout", d.Access.Logout)

		api.GET("/me", guard(roledomain.RoleCandidate), d.Access.Me)
		api.GET("/admin/audit-events", guard(roledomain.RoleAdmin), d.Access.AuditEvents)
	}

	if d.Access.DevLinksEnabled() {
		r.GET("/dev/magic-link", d.Access.DevMagicLink)
	}
	return r, nil
}
