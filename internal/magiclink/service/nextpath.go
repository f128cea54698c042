package service

import (
	"net/url"
	"path"
	"strings"
)

// DefaultNextPath is where a login lands when no acceptable next path was given.
const DefaultNextPath = "/dashboard"

// NextPathPolicy restricts post-login redirects to internal paths under an allow-list of
// prefixes so a crafted link cannot bounce the user to another origin.
type NextPathPolicy struct {
	prefixes []string
	fallback string
}

// NewNextPathPolicy returns a policy allowing paths under prefixes. An empty fallback
// means DefaultNextPath.
func NewNextPathPolicy(prefixes []string, fallback string) *NextPathPolicy {
	if fallback == "" {
		fallback = DefaultNextPath
	}
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p != "/" {
			p = strings.TrimSuffix(p, "/")
		}
		cleaned = append(cleaned, p)
	}
	return &NextPathPolicy{prefixes: cleaned, fallback: fallback}
}

// Sanitize returns raw when it is an allowed internal path (query kept, fragment dropped)
// and the fallback otherwise.
func (p *NextPathPolicy) Sanitize(raw string) string {
	if got, ok := p.check(raw); ok {
		return got
	}
	return p.fallback
}

func (p *NextPathPolicy) check(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "", false
	}
	if strings.ContainsAny(raw, "\\") || strings.Contains(raw, "://") {
		return "", false
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return "", false
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "", false
	}
	clean := path.Clean(u.Path)
	if !p.prefixAllowed(clean) {
		return "", false
	}
	out := clean
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out, true
}

func (p *NextPathPolicy) prefixAllowed(clean string) bool {
	for _, prefix := range p.prefixes {
		if prefix == "/" || clean == prefix || strings.HasPrefix(clean, prefix+"/") {
			return true
		}
	}
	return false
}
