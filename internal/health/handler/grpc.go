// Package handler exposes health reports over the standard gRPC health protocol and HTTP.
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "careers-portal/backend/internal/health"
)

// ServiceName is the gRPC health service name reported for the access API.
const ServiceName = "careers.access"

// Server wraps the grpc-go health server and keeps its status in line with the checker.
type Server struct {
	*health.Server
	checker *healthcheck.Checker
	logger  *zap.Logger
}

// NewServer returns a health server that starts NOT_SERVING until the first check.
func NewServer(checker *healthcheck.Checker, logger *zap.Logger) *Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{Server: hs, checker: checker, logger: logger}
}

// Refresh runs the checker once and publishes the result.
func (s *Server) Refresh(ctx context.Context) healthcheck.Report {
	r := s.checker.Check(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if !r.Serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn("health: not serving", zap.Any("components", r.Components))
	}
	s.SetServingStatus("", st)
	s.SetServingStatus(ServiceName, st)
	return r
}

// Run refreshes every interval until ctx is done, then marks everything NOT_SERVING.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
