// Package handler serves the magic-link and session endpoints over HTTP.
package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"careers-portal/backend/internal/identity/service"
	"careers-portal/backend/internal/mail"
	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/server/middleware"
)

// DevLinkReader returns the latest link issued to an email. Development only.
type DevLinkReader interface {
	Get(email string) (string, bool)
}

// Handler holds the access HTTP handlers.
type Handler struct {
	svc      *service.AccessService
	cookie   CookieConfig
	devLinks DevLinkReader
	logger   *zap.Logger
}

// NewHandler returns a Handler.
func NewHandler(svc *service.AccessService, cookie CookieConfig, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, cookie: cookie, logger: logger}
}

// WithDevLinks enables GET /dev/magic-link.
func (h *Handler) WithDevLinks(d DevLinkReader) *Handler {
	h.devLinks = d
	return h
}

// DevLinksEnabled reports whether the dev link route should be mounted.
func (h *Handler) DevLinksEnabled() bool { return h.devLinks != nil }

type requestLinkBody struct {
	Email string `json:"email"`
	Next  string `json:"next"`
}

// RequestLink handles POST /api/auth/request-link. The answer is the same for every input.
func (h *Handler) RequestLink(c *gin.Context) {
	var body requestLinkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Debug("request-link: unreadable body", zap.Error(err))
	} else {
		h.svc.RequestLink(c.Request.Context(), body.Email, body.Next)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type verifyBody struct {
	Token string `json:"token"`
	Next  string `json:"next"`
}

// Verify handles POST /api/auth/verify.
func (h *Handler) Verify(c *gin.Context) {
	var body verifyBody
	_ = c.ShouldBindJSON(&body)
	c.Header("Cache-Control", "no-store")

	res, err := h.svc.CompleteLogin(c.Request.Context(), body.Token, body.Next)
	if err != nil {
		h.logRedeemFailure(err)
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid_or_expired"})
		return
	}
	h.cookie.set(c, res.Secret.Reveal())
	c.JSON(http.StatusOK, gin.H{"ok": true, "next": res.Next})
}

// VerifyPage handles GET /auth/verify, the URL in the email.
func (h *Handler) VerifyPage(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")

	res, err := h.svc.CompleteLogin(c.Request.Context(), c.Query("token"), c.Query("next"))
	if err != nil {
		h.logRedeemFailure(err)
		c.Redirect(http.StatusSeeOther, middleware.LoginPath+"?error=invalid_link")
		return
	}
	h.cookie.set(c, res.Secret.Reveal())
	c.Redirect(http.StatusSeeOther, res.Next)
}

func (h *Handler) logRedeemFailure(err error) {
	if errors.Is(err, autherr.ErrDependencyUnavailable) {
		h.logger.Error("verify: datastore unavailable", zap.Error(err))
		return
	}
	h.logger.Info("verify: redemption rejected", zap.String("reason", autherr.Reason(err)))
}

// Session handles GET /api/auth/session.
func (h *Handler) Session(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	raw, _ := c.Cookie(h.cookie.Name)
	s, err := h.svc.CheckSession(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, autherr.ErrDependencyUnavailable) {
			h.logger.Error("session: datastore unavailable", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          gin.H{"email": s.Email, "role": s.Role},
	})
}

// Logout handles POST /api/auth/logout. The cookie is cleared whatever the outcome.
func (h *Handler) Logout(c *gin.Context) {
	raw, _ := c.Cookie(h.cookie.Name)
	h.cookie.clear(c)
	if err := h.svc.Logout(c.Request.Context(), raw); err != nil {
		h.logger.Error("logout: revoke failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me handles GET /api/me. Mounted behind the guard.
func (h *Handler) Me(c *gin.Context) {
	s, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"email":     s.Email,
		"role":      s.Role,
		"expiresAt": s.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// AuditEvents handles GET /api/admin/audit-events. Mounted behind the admin guard.
func (h *Handler) AuditEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.svc.ListAuditEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("audit-events: list failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "unavailable"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// DevMagicLink handles GET /dev/magic-link?email=.
func (h *Handler) DevMagicLink(c *gin.Context) {
	if h.devLinks == nil {
		c.Status(http.StatusNotFound)
		return
	}
	email, err := mail.Normalize(c.Query("email"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_email"})
		return
	}
	link, ok := h.devLinks.Get(email)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not_found"})
		return
	}
	u, err := url.Parse(link)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "link": link, "token": u.Query().Get("token")})
}
