// Package devlink keeps the latest magic link per email in memory so local development can
// log in without a mail server (GET /dev/magic-link). Never enabled in production.
package devlink

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	link      string
	expiresAt time.Time
}

// MemoryStore holds one link per email until it expires.
type MemoryStore struct {
	ttl  time.Duration
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a store whose links expire after ttl, matching the token lifetime.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Put replaces the link for email.
func (s *MemoryStore) Put(email, link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[strings.ToLower(email)] = entry{link: link, expiresAt: s.nowF().Add(s.ttl)}
}

// Get returns the link for email if present and not expired.
func (s *MemoryStore) Get(email string) (string, bool) {
	key := strings.ToLower(email)
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return "", false
	}
	return e.link, true
}
