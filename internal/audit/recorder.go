// Package audit records authentication events. Recording is fire-and-forget: callers never
// wait on persistence and never see its errors.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"careers-portal/backend/internal/audit/domain"
	"careers-portal/backend/internal/platform/requestctx"
)

// Sink persists or forwards a single event.
type Sink interface {
	Write(ctx context.Context, e *domain.Event) error
}

// SinkFunc adapts a function (e.g. a repository's Create) to Sink.
type SinkFunc func(ctx context.Context, e *domain.Event) error

func (f SinkFunc) Write(ctx context.Context, e *domain.Event) error { return f(ctx, e) }

// DropObserver is notified when an event is dropped because the buffer is full.
type DropObserver interface {
	AuditDropped(ctx context.Context)
}

const defaultWriteTimeout = 5 * time.Second

// Recorder buffers events on a bounded channel drained by one background goroutine that
// writes each event to every sink. When the buffer is full the event is dropped.
type Recorder struct {
	sinks        []Sink
	logger       *zap.Logger
	observer     DropObserver
	writeTimeout time.Duration

	ch        chan *domain.Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	// NowFunc is exposed for tests.
	NowFunc func() time.Time
}

// NewRecorder starts a recorder with room for bufferSize pending events.
func NewRecorder(logger *zap.Logger, bufferSize int, observer DropObserver, sinks ...Sink) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	r := &Recorder{
		sinks:        sinks,
		logger:       logger,
		observer:     observer,
		writeTimeout: defaultWriteTimeout,
		ch:           make(chan *domain.Event, bufferSize),
		done:         make(chan struct{}),
		NowFunc:      time.Now,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case e := <-r.ch:
			r.write(e)
		case <-r.done:
			for {
				select {
				case e := <-r.ch:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e *domain.Event) {
	for _, s := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		if err := s.Write(ctx, e); err != nil {
			r.logger.Warn("audit: failed to write event",
				zap.String("action", e.Action),
				zap.String("event_id", e.ID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Record enqueues an event for action. Client IP and user agent come from ctx. It never
// blocks and is a no-op on a nil or closed Recorder.
func (r *Recorder) Record(ctx context.Context, action, email string, meta map[string]string) {
	if r == nil || r.closed.Load() {
		return
	}
	client := requestctx.GetClient(ctx)
	e := &domain.Event{
		ID:        uuid.New().String(),
		Action:    action,
		Email:     email,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: r.NowFunc().UTC(),
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			e.Meta = string(b)
		}
	}
	select {
	case r.ch <- e:
	case <-r.done:
	default:
		r.dropped.Add(1)
		if r.observer != nil {
			r.observer.AuditDropped(ctx)
		}
		r.logger.Warn("audit: buffer full, event dropped", zap.String("action", action))
	}
}

// Dropped returns the number of events dropped so far.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close stops accepting events and drains the buffer. It returns ctx.Err() if draining
// outlives ctx; the drain keeps going in the background in that case.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
	})
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
