package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"careers-portal/backend/internal/audit"
	auditrepo "careers-portal/backend/internal/audit/repository"
	"careers-portal/backend/internal/config"
	"careers-portal/backend/internal/db"
	"careers-portal/backend/internal/devlink"
	healthcheck "careers-portal/backend/internal/health"
	healthhandler "careers-portal/backend/internal/health/handler"
	identityhandler "careers-portal/backend/internal/identity/handler"
	identityservice "careers-portal/backend/internal/identity/service"
	"careers-portal/backend/internal/logging"
	mlrepo "careers-portal/backend/internal/magiclink/repository"
	magiclink "careers-portal/backend/internal/magiclink/service"
	"careers-portal/backend/internal/mail"
	"careers-portal/backend/internal/platform/detached"
	"careers-portal/backend/internal/policy/engine"
	"careers-portal/backend/internal/ratelimit"
	rolerepo "careers-portal/backend/internal/role/repository"
	"careers-portal/backend/internal/server"
	sessionrepo "careers-portal/backend/internal/session/repository"
	sessionsvc "careers-portal/backend/internal/session/service"
	"careers-portal/backend/internal/telemetry"
	telemetryotel "careers-portal/backend/internal/telemetry/otel"
)

const (
	shutdownTimeout     = 15 * time.Second
	healthCheckInterval = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server: exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter(telemetry.MeterName))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer conn.Close()

	tokens := mlrepo.NewPostgresRepository(conn, cfg.DBTimeout())
	sessions := sessionrepo.NewPostgresRepository(conn, cfg.DBTimeout())
	roles := rolerepo.NewPostgresRepository(conn, cfg.DBTimeout())
	events := auditrepo.NewPostgresRepository(conn, cfg.DBTimeout())

	// Audit sinks: Postgres directly, or Kafka with cmd/worker persisting. OTLP mirrors either.
	var sinks []audit.Sink
	var publisher *audit.KafkaPublisher
	if cfg.AuditSink == "kafka" {
		publisher = audit.NewKafkaPublisher(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic)
		sinks = append(sinks, publisher)
	} else {
		sinks = append(sinks, audit.SinkFunc(events.Create))
	}
	if cfg.OTLPEndpoint != "" {
		sinks = append(sinks, telemetryotel.NewAuditLogSink(providers.LoggerProvider))
	}
	recorder := audit.NewRecorder(logger, cfg.AuditBufferSize, metrics, sinks...)

	var sender mail.Sender
	var outbox *devlink.MemoryStore
	if cfg.DevLinkReturn {
		sender = mail.NewLogSender(logger)
		outbox = devlink.NewMemoryStore(cfg.TokenTTL())
		logger.Warn("server: DEV_LINK_RETURN is on, links are logged and served at /dev/magic-link")
	} else {
		sender = mail.NewPostmarkSender(cfg.MailAPIURL, cfg.MailServerToken, cfg.MailFrom, cfg.MailMessageStream)
	}

	workers := detached.NewGroup(cfg.WorkerTimeout(), logger)
	issuer, err := magiclink.NewIssuer(tokens, sender, recorder, workers, logger, magiclink.IssuerConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		TokenTTL:      cfg.TokenTTL(),
		MailTimeout:   cfg.MailTimeout(),
	})
	if err != nil {
		return err
	}
	issuer.WithMetrics(metrics)
	if outbox != nil {
		issuer.WithOutbox(outbox)
	}
	verifier := magiclink.NewVerifier(tokens).WithMetrics(metrics)
	manager := sessionsvc.NewManager(sessions, workers, logger, sessionsvc.ManagerConfig{
		SessionTTL:       cfg.SessionTTL(),
		LastSeenInterval: cfg.LastSeenInterval(),
	}).WithMetrics(metrics)
	nextPaths := magiclink.NewNextPathPolicy(cfg.NextPrefixes(), "")

	svc := identityservice.NewAccessService(issuer, verifier, manager, roles, recorder, events, nextPaths, logger).
		WithMetrics(metrics)

	authz, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	checker := healthcheck.NewChecker(conn, authz, cfg.DBTimeout())

	if cfg.RedisURL != "" {
		client, err := ratelimit.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		limiter := ratelimit.New(client, ratelimit.Config{Limit: cfg.IssueRateLimit, Window: cfg.IssueRateWindow()})
		svc.WithRateLimiter(limiter)
		checker.WithOptional("redis", limiter)
	}

	access := identityhandler.NewHandler(svc, identityhandler.CookieConfig{
		Name:   cfg.CookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.SessionTTL(),
	}, logger)
	if outbox != nil {
		access.WithDevLinks(outbox)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	health := healthhandler.NewServer(checker, logger)
	router, err := server.NewRouter(server.RouterDeps{
		Access:         access,
		Health:         health,
		Sessions:       manager,
		Authz:          authz,
		TrustedProxies: cfg.TrustedProxiesList(),
		CookieName:     cfg.CookieName,
		ServiceName:    cfg.OTELServiceName,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := server.NewGRPCServer(health)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server: http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("server: grpc health listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		health.Run(gctx, healthCheckInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server: http shutdown", zap.Error(err))
		}
		grpcServer.GracefulStop()
		if err := workers.WaitContext(shutdownCtx); err != nil {
			logger.Warn("server: background work still running", zap.Error(err))
		}
		if err := recorder.Close(shutdownCtx); err != nil {
			logger.Warn("server: audit drain incomplete", zap.Error(err))
		}
		if err := publisher.Close(); err != nil {
			logger.Warn("server: kafka writer close", zap.Error(err))
		}
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server: otel shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server: stopped")
	return err
}
