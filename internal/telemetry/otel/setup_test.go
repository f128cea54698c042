package otel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestNewProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		p, err := NewProviders(ctx, Config{Endpoint: endpoint, ServiceName: "careers-access"}, nil)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if p.TracerProvider == nil || p.MeterProvider == nil || p.LoggerProvider == nil {
			t.Errorf("NewProviders(%q): providers should be non-nil no-ops", endpoint)
		}
		if err := p.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		if _, err := NewProviders(context.Background(), Config{Endpoint: endpoint, ServiceName: "careers-access"}, nil); err == nil {
			t.Errorf("NewProviders(%q) should fail", endpoint)
		}
	}
}

// Exporter construction does not dial, so well-formed endpoints succeed without a collector.
func TestNewProviders_Endpoints(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"localhost:4317", "http://localhost:4317/v1/traces", "https://collector:4317"} {
		p, err := NewProviders(ctx, Config{Endpoint: endpoint, ServiceName: "careers-access", Insecure: true}, nil)
		if err != nil {
			t.Errorf("NewProviders(%q): %v", endpoint, err)
			continue
		}
		shutdownCtx, cancel := context.WithCancel(ctx)
		cancel()
		_ = p.Shutdown(shutdownCtx)
	}
}

func TestNewProviders_Resource(t *testing.T) {
	p, err := NewProviders(context.Background(), Config{ServiceName: "careers-access", Environment: "staging"}, nil)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	want := map[attribute.Key]string{
		"service.name":                "careers-access",
		"service.namespace":           ServiceNamespace,
		"deployment.environment.name": "staging",
	}
	for key, value := range want {
		got, ok := p.Resource.Set().Value(key)
		if !ok || got.AsString() != value {
			t.Errorf("resource %s = %q (present %v), want %q", key, got.AsString(), ok, value)
		}
	}
}

func TestCollectorTarget(t *testing.T) {
	tests := []struct {
		endpoint string
		target   string
		insecure bool
	}{
		{"localhost:4317", "localhost:4317", true},
		{"http://collector:4317/v1/traces", "collector:4317", true},
		{"https://collector:4317", "collector:4317", false},
	}
	for _, tt := range tests {
		target, insecure, err := collectorTarget(tt.endpoint)
		if err != nil {
			t.Errorf("collectorTarget(%q): %v", tt.endpoint, err)
			continue
		}
		if target != tt.target || insecure != tt.insecure {
			t.Errorf("collectorTarget(%q) = %q, %v; want %q, %v", tt.endpoint, target, insecure, tt.target, tt.insecure)
		}
	}
}

func TestShutdownChain_ReverseOrderAndJoinedErrors(t *testing.T) {
	var order []string
	var chain shutdownChain
	for _, name := range []string{"tracer", "meter", "logger"} {
		name := name
		chain.add(name, func(context.Context) error {
			order = append(order, name)
			if name == "meter" {
				return errors.New("flush failed")
			}
			return nil
		})
	}
	err := chain.run(context.Background(), zap.NewNop())
	if got := strings.Join(order, ","); got != "logger,meter,tracer" {
		t.Errorf("shutdown order = %s, want logger,meter,tracer", got)
	}
	if err == nil || !strings.Contains(err.Error(), "meter: flush failed") {
		t.Errorf("err = %v, want meter failure", err)
	}
}

func TestSetGlobal(t *testing.T) {
	oldTP := otel.GetTracerProvider()
	oldMP := otel.GetMeterProvider()
	oldProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
		otel.SetTextMapPropagator(oldProp)
	})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	(&Providers{TracerProvider: tp}).SetGlobal()

	if otel.GetTracerProvider() != tp {
		t.Error("TracerProvider should be set")
	}
	if otel.GetMeterProvider() != oldMP {
		t.Error("nil MeterProvider should leave the global unchanged")
	}
	fields := otel.GetTextMapPropagator().Fields()
	var hasTraceparent bool
	for _, f := range fields {
		if f == "traceparent" {
			hasTraceparent = true
		}
	}
	if !hasTraceparent {
		t.Errorf("propagator fields = %v, want traceparent", fields)
	}
}
