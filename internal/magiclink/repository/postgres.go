package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"careers-portal/backend/internal/db"
	"careers-portal/backend/internal/magiclink/domain"
)

type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepository returns an access-token repository backed by db. Each call is
// bounded by timeout.
func NewPostgresRepository(conn *sql.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: conn, timeout: timeout}
}

func (r *PostgresRepository) Create(ctx context.Context, t *domain.AccessToken) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (id, email, token_hash, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Email, t.TokenHash, t.ExpiresAt, db.NullTime(t.UsedAt), t.CreatedAt)
	return err
}

// GetByHash returns the token for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.AccessToken, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	var (
		t      domain.AccessToken
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, token_hash, expires_at, used_at, created_at
		   FROM access_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.ID, &t.Email, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.UsedAt = db.TimePtr(usedAt)
	return &t, nil
}

// Claim is the single serialization point for redemption: the WHERE clause makes the
// database arbitrate concurrent claims and exactly one caller sees one affected row.
func (r *PostgresRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
