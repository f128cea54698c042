package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name string
	// Domain is the apex domain shared by the portal's subdomains. Empty means host-only.
	Domain string
	Secure bool
	MaxAge time.Duration
}

// set writes the session cookie. It is always HttpOnly and SameSite=Lax.
func (cc CookieConfig) set(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.Name, value, int(cc.MaxAge.Seconds()), "/", cc.Domain, cc.Secure, true)
}

// clear expires the session cookie in the browser.
func (cc CookieConfig) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.Name, "", -1, "/", cc.Domain, cc.Secure, true)
}
