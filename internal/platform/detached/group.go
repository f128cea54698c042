// Package detached runs best-effort side effects (mail delivery, last-seen writes) outside
// the request lifetime. Tasks get a context that keeps request values such as trace spans
// but is not cancelled with the request, bounded by the group's timeout.
package detached

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Group tracks detached tasks so shutdown can wait for them.
type Group struct {
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewGroup returns a group whose tasks each run for at most timeout.
func NewGroup(timeout time.Duration, logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{timeout: timeout, logger: logger}
}

// Go runs fn in a new goroutine. A returned error is logged under name and otherwise ignored.
func (g *Group) Go(parent context.Context, name string, fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), g.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			g.logger.Warn("detached task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until all started tasks return.
func (g *Group) Wait() {
	g.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (g *Group) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
