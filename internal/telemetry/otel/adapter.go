package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	auditdomain "careers-portal/backend/internal/audit/domain"
)

// AuditScope is the instrumentation scope of audit log records.
const AuditScope = "careers-portal/access/audit"

// recordEmitter is the part of otellog.Logger the sink uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// AuditLogSink forwards audit events as OTel log records so they reach the same collector
// as traces and metrics. It satisfies audit.Sink.
type AuditLogSink struct {
	logger recordEmitter
}

// NewAuditLogSink returns a sink emitting through provider, or nil when provider is nil.
func NewAuditLogSink(provider *sdklog.LoggerProvider) *AuditLogSink {
	if provider == nil {
		return nil
	}
	return NewAuditLogSinkWithLogger(provider.Logger(AuditScope))
}

// NewAuditLogSinkWithLogger returns a sink emitting through logger. Used by tests.
func NewAuditLogSinkWithLogger(logger recordEmitter) *AuditLogSink {
	return &AuditLogSink{logger: logger}
}

// Write emits e. A nil sink or event is a no-op.
func (s *AuditLogSink) Write(ctx context.Context, e *auditdomain.Event) error {
	if s == nil || e == nil {
		return nil
	}
	var rec otellog.Record
	rec.SetTimestamp(e.CreatedAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName("auth." + e.Action)
	rec.SetBody(otellog.StringValue(e.Action))
	rec.AddAttributes(
		otellog.String("audit.id", e.ID),
		otellog.String("audit.action", e.Action),
		otellog.String("client.address", e.IP),
	)
	if e.Email != "" {
		rec.AddAttributes(otellog.String("user.email", e.Email))
	}
	if e.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent.original", e.UserAgent))
	}
	if e.Meta != "" {
		rec.AddAttributes(otellog.String("audit.meta", e.Meta))
	}
	s.logger.Emit(ctx, rec)
	return nil
}
