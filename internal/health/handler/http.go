package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz answers GET /healthz with a fresh report.
func (s *Server) Healthz(c *gin.Context) {
	r := s.Refresh(c.Request.Context())
	c.Header("Cache-Control", "no-store")
	if !r.Serving {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "components": r.Components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "components": r.Components})
}
