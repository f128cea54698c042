// Worker consumes audit events from Kafka and persists them to Postgres. Run it when the
// server is configured with AUDIT_SINK=kafka. Uses KAFKA_BROKERS, AUDIT_KAFKA_TOPIC,
// KAFKA_GROUP_ID and DATABASE_URL; the rest of the shared config must still validate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"careers-portal/backend/internal/audit"
	auditrepo "careers-portal/backend/internal/audit/repository"
	"careers-portal/backend/internal/config"
	"careers-portal/backend/internal/db"
	"careers-portal/backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("worker: database", zap.Error(err))
	}
	defer conn.Close()

	repo := auditrepo.NewPostgresRepository(conn, cfg.DBTimeout())
	consumer := audit.NewConsumer(brokers, cfg.AuditKafkaTopic, cfg.KafkaGroupID, audit.SinkFunc(repo.Create), logger, cfg.DBTimeout())
	defer func() { _ = consumer.Close() }()

	logger.Info("worker: consuming audit events",
		zap.String("topic", cfg.AuditKafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
	)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("worker: stopped with error", zap.Error(err))
		return
	}
	logger.Info("worker: stopped")
}
