package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"careers-portal/backend/internal/audit/domain"
	"careers-portal/backend/internal/db"
)

type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepository returns an audit repository backed by db. Each call is bounded by timeout.
func NewPostgresRepository(conn *sql.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: conn, timeout: timeout}
}

// Create inserts e. Replayed events (same ID, e.g. redelivered from Kafka) are ignored.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, email, ip, user_agent, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Action, db.NullString(e.Email), e.IP, db.NullString(e.UserAgent), db.NullString(e.Meta), e.CreatedAt)
	return classifyWriteError(err)
}

// classifyWriteError wraps data exceptions (class 22) and integrity violations (class 23)
// with domain.ErrEventRejected. Other errors are returned unchanged.
func classifyWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return fmt.Errorf("%w: %s (%s)", domain.ErrEventRejected, pgErr.Message, pgErr.Code)
	}
	return err
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, email, ip, user_agent, meta, created_at
		   FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var (
			e                   domain.Event
			email, ua, metaText sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Action, &email, &e.IP, &ua, &metaText, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Email, e.UserAgent, e.Meta = email.String, ua.String, metaText.String
		out = append(out, &e)
	}
	return out, rows.Err()
}
