// Package telemetry holds the access subsystem's OpenTelemetry instruments.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName scopes every instrument created here.
const MeterName = "careers-portal/access"

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics counts access events. All methods are safe on a nil receiver.
type Metrics struct {
	tokensIssued      metric.Int64Counter
	redemptions       metric.Int64Counter
	sessionsValidated metric.Int64Counter
	issueRateLimited  metric.Int64Counter
	auditDropped      metric.Int64Counter
}

// NewMetrics creates the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.tokensIssued, err = meter.Int64Counter("auth.tokens.issued",
		metric.WithDescription("Access tokens persisted")); err != nil {
		return nil, err
	}
	if m.redemptions, err = meter.Int64Counter("auth.redemptions",
		metric.WithDescription("Token redemptions by outcome and reason")); err != nil {
		return nil, err
	}
	if m.sessionsValidated, err = meter.Int64Counter("auth.sessions.validated",
		metric.WithDescription("Session validations by outcome")); err != nil {
		return nil, err
	}
	if m.issueRateLimited, err = meter.Int64Counter("auth.issue.rate_limited",
		metric.WithDescription("Link requests dropped by the rate limiter")); err != nil {
		return nil, err
	}
	if m.auditDropped, err = meter.Int64Counter("auth.audit.dropped",
		metric.WithDescription("Audit events dropped because the buffer was full")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) TokenIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1)
}

// Redemption records one redemption attempt. reason is empty on success.
func (m *Metrics) Redemption(ctx context.Context, outcome, reason string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.redemptions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) SessionValidated(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.sessionsValidated.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) IssueRateLimited(ctx context.Context) {
	if m == nil {
		return
	}
	m.issueRateLimited.Add(ctx, 1)
}

// AuditDropped implements audit.DropObserver.
func (m *Metrics) AuditDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.auditDropped.Add(ctx, 1)
}
