// Package health reports readiness of the access service's dependencies.
package health

import (
	"context"
	"time"
)

// Pinger checks database connectivity. Implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the access policy evaluates. Implemented by the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// OptionalPinger checks a dependency the service can run without (e.g. the Redis rate limiter).
type OptionalPinger interface {
	Ping(ctx context.Context) error
}

// Component status values.
const (
	StatusOK       = "ok"
	StatusDown     = "down"
	StatusDegraded = "degraded"
)

// Report is the outcome of one Check. Serving is false only when a required dependency is down.
type Report struct {
	Serving    bool              `json:"-"`
	Components map[string]string `json:"components"`
}

// Checker runs dependency checks. Nil dependencies are skipped.
type Checker struct {
	db       Pinger
	policy   PolicyChecker
	optional map[string]OptionalPinger
	timeout  time.Duration
}

// NewChecker returns a checker for the required dependencies.
func NewChecker(db Pinger, policy PolicyChecker, timeout time.Duration) *Checker {
	return &Checker{db: db, policy: policy, optional: make(map[string]OptionalPinger), timeout: timeout}
}

// WithOptional adds a dependency whose failure degrades but does not stop serving.
func (c *Checker) WithOptional(name string, p OptionalPinger) *Checker {
	if p != nil {
		c.optional[name] = p
	}
	return c
}

// Check runs every configured check, each bounded by the checker timeout.
func (c *Checker) Check(ctx context.Context) Report {
	r := Report{Serving: true, Components: make(map[string]string)}
	if c.db != nil {
		r.set("database", c.run(ctx, c.db.PingContext), true)
	}
	if c.policy != nil {
		r.set("policy", c.run(ctx, c.policy.HealthCheck), true)
	}
	for name, p := range c.optional {
		r.set(name, c.run(ctx, p.Ping), false)
	}
	return r
}

func (c *Checker) run(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(ctx)
}

func (r *Report) set(name string, err error, required bool) {
	switch {
	case err == nil:
		r.Components[name] = StatusOK
	case required:
		r.Components[name] = StatusDown
		r.Serving = false
	default:
		r.Components[name] = StatusDegraded
	}
}
