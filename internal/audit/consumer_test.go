package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"careers-portal/backend/internal/audit/domain"
)

// fakeReader serves queued messages, then blocks until ctx ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

// flakySink fails the first failures writes and always rejects events whose id is in reject.
type flakySink struct {
	mu       sync.Mutex
	failures int
	reject   map[string]bool
	attempts map[string]int
	written  []*domain.Event
}

func (s *flakySink) Write(_ context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = make(map[string]int)
	}
	s.attempts[e.ID]++
	if s.reject[e.ID] {
		return fmt.Errorf("insert: %w: invalid byte sequence", domain.ErrEventRejected)
	}
	if s.failures > 0 {
		s.failures--
		return errors.New("db down")
	}
	s.written = append(s.written, e)
	return nil
}

func eventMessage(t *testing.T, offset int64, e *domain.Event) kafka.Message {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Offset: offset, Value: b}
}

func runConsumer(t *testing.T, r *fakeReader, sink Sink) {
	t.Helper()
	c := newConsumer(r, sink, zap.NewNop(), time.Second)
	c.retryDelay = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	select {
	case <-r.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestConsumer_WritesAndCommits(t *testing.T) {
	r := newFakeReader(
		eventMessage(t, 1, &domain.Event{ID: "e1", Action: domain.ActionLogout, IP: "10.0.0.1"}),
		kafka.Message{Offset: 2, Value: []byte("not json")},
		eventMessage(t, 3, &domain.Event{ID: "e3", Action: domain.ActionRedeemSuccess}),
	)
	sink := &flakySink{}
	runConsumer(t, r, sink)

	if len(sink.written) != 2 || sink.written[0].ID != "e1" || sink.written[1].ID != "e3" {
		t.Errorf("written = %+v", sink.written)
	}
	if len(r.committed) != 3 {
		t.Errorf("committed = %v, want all three offsets", r.committed)
	}
}

func TestConsumer_RetriesFailedWrite(t *testing.T) {
	r := newFakeReader(eventMessage(t, 7, &domain.Event{ID: "e7", Action: domain.ActionLogout}))
	sink := &flakySink{failures: 2}
	runConsumer(t, r, sink)

	if len(sink.written) != 1 {
		t.Fatalf("written = %d, want 1", len(sink.written))
	}
	if len(r.committed) != 1 || r.committed[0] != 7 {
		t.Errorf("committed = %v", r.committed)
	}
}

func TestConsumer_SkipsRejectedEvent(t *testing.T) {
	r := newFakeReader(
		eventMessage(t, 4, &domain.Event{ID: "bad", Action: domain.ActionRedeemFailed}),
		eventMessage(t, 5, &domain.Event{ID: "good", Action: domain.ActionLogout}),
	)
	sink := &flakySink{reject: map[string]bool{"bad": true}}
	runConsumer(t, r, sink)

	if sink.attempts["bad"] != 1 {
		t.Errorf("rejected event attempts = %d, want 1", sink.attempts["bad"])
	}
	if len(sink.written) != 1 || sink.written[0].ID != "good" {
		t.Errorf("written = %+v, want only the event after the rejected one", sink.written)
	}
	if len(r.committed) != 2 || r.committed[0] != 4 || r.committed[1] != 5 {
		t.Errorf("committed = %v, want [4 5]", r.committed)
	}
}
