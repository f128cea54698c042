package middleware

import (
	"github.com/gin-gonic/gin"

	"careers-portal/backend/internal/platform/requestctx"
)

// Client stores the caller's IP and user agent in the request context for the session
// manager and the audit sink. The IP comes from gin's ClientIP, so forwarding headers
// count only when the engine's trusted proxies include the peer.
func Client() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := requestctx.WithClient(c.Request.Context(), requestctx.NewClient(c.ClientIP(), c.Request.UserAgent()))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
