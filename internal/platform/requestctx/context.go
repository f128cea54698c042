// Package requestctx carries per-request client details through context so services and
// the audit sink can record them without depending on the HTTP layer.
package requestctx

import (
	"context"
	"strings"
	"unicode/utf8"
)

type contextKey struct{ name string }

var clientKey = contextKey{"client"}

// UnknownIP is recorded when no client address can be determined.
const UnknownIP = "unknown"

// maxUserAgentLen caps what is persisted from the User-Agent header.
const maxUserAgentLen = 512

// Client describes the caller of the current request.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient returns a context carrying c.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

// GetClient returns the client from context. IP is UnknownIP when unset.
func GetClient(ctx context.Context) Client {
	c, ok := ctx.Value(clientKey).(Client)
	if !ok || c.IP == "" {
		c.IP = UnknownIP
	}
	return c
}

// NewClient returns a Client for ip and userAgent. The user agent is made valid UTF-8 and
// cut to maxUserAgentLen bytes on a rune boundary so it can always be stored as text.
func NewClient(ip, userAgent string) Client {
	return Client{IP: strings.TrimSpace(ip), UserAgent: truncateUTF8(strings.ToValidUTF8(userAgent, ""), maxUserAgentLen)}
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
