package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"careers-portal/backend/internal/db"
	"careers-portal/backend/internal/role/domain"
)

type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepository returns a role repository backed by db. Each call is bounded by timeout.
func NewPostgresRepository(conn *sql.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: conn, timeout: timeout}
}

// GetByEmail returns the grant for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Record, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	var (
		rec  domain.Record
		role string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT email, role, granted_at FROM user_roles WHERE email = $1`, email).
		Scan(&rec.Email, &role, &rec.GrantedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Role = domain.Role(role)
	return &rec, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (email, role, granted_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, granted_at = EXCLUDED.granted_at`,
		rec.Email, string(rec.Role), rec.GrantedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, email string) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE email = $1`, email)
	return err
}
