package mail

import (
	"context"
	"sync"
)

// MemorySender records messages in memory. Used by tests.
type MemorySender struct {
	mu   sync.Mutex
	msgs []Message
	// Err, when set, is returned by every Send after recording the message.
	Err error
}

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.Err
}

// Messages returns a copy of the recorded messages.
func (s *MemorySender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}
