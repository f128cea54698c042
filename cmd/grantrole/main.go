// grantrole grants or revokes a role for an email address. Grants take effect at the
// user's next login; existing sessions keep the role they were created with.
//
//	go run ./cmd/grantrole -email ops@example.com -role admin
//	go run ./cmd/grantrole -email ops@example.com -revoke
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"careers-portal/backend/internal/config"
	"careers-portal/backend/internal/db"
	"careers-portal/backend/internal/logging"
	"careers-portal/backend/internal/mail"
	"careers-portal/backend/internal/role/domain"
	rolerepo "careers-portal/backend/internal/role/repository"
)

func main() {
	email := flag.String("email", "", "address to grant the role to")
	role := flag.String("role", string(domain.RoleAdmin), "role to grant (candidate or admin)")
	revoke := flag.Bool("revoke", false, "remove the grant instead")
	flag.Parse()

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

	addr, err := mail.Normalize(*email)
	if err != nil {
		logger.Fatal("grantrole: invalid -email", zap.Error(err))
	}
	parsed, ok := domain.ParseRole(*role)
	if !ok {
		logger.Fatal("grantrole: unknown -role", zap.String("role", *role))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("grantrole: database", zap.Error(err))
	}
	defer conn.Close()
	repo := rolerepo.NewPostgresRepository(conn, cfg.DBTimeout())

	if *revoke {
		if err := repo.Delete(ctx, addr); err != nil {
			logger.Fatal("grantrole: revoke", zap.Error(err))
		}
		logger.Info("grantrole: revoked", zap.String("email", addr))
		return
	}
	if err := repo.Upsert(ctx, &domain.Record{Email: addr, Role: parsed, GrantedAt: time.Now().UTC()}); err != nil {
		logger.Fatal("grantrole: grant", zap.Error(err))
	}
	logger.Info("grantrole: granted", zap.String("email", addr), zap.String("role", string(parsed)))
}
