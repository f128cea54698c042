package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"careers-portal/backend/internal/db"
	roledomain "careers-portal/backend/internal/role/domain"
	"careers-portal/backend/internal/session/domain"
)

type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepository returns a session repository backed by db. Each call is bounded by timeout.
func NewPostgresRepository(conn *sql.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: conn, timeout: timeout}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, session_hash, email, role, expires_at, revoked_at, last_seen_at, ip, user_agent, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.SessionHash, s.Email, string(s.Role), s.ExpiresAt,
		db.NullTime(s.RevokedAt), db.NullTime(s.LastSeenAt),
		db.NullString(s.IP), db.NullString(s.UserAgent), db.NullString(s.Meta), s.CreatedAt)
	return err
}

// GetByHash returns the session for sessionHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, sessionHash string) (*domain.Session, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	var (
		s                   domain.Session
		role                string
		revokedAt, lastSeen sql.NullTime
		ip, ua, meta        sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_hash, email, role, expires_at, revoked_at, last_seen_at, ip, user_agent, meta, created_at
		   FROM sessions WHERE session_hash = $1`, sessionHash).
		Scan(&s.ID, &s.SessionHash, &s.Email, &role, &s.ExpiresAt, &revokedAt, &lastSeen, &ip, &ua, &meta, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Role = roledomain.Role(role)
	s.RevokedAt = db.TimePtr(revokedAt)
	s.LastSeenAt = db.TimePtr(lastSeen)
	s.IP, s.UserAgent, s.Meta = ip.String, ua.String, meta.String
	return &s, nil
}

func (r *PostgresRepository) RevokeActiveByEmail(ctx context.Context, email string, at time.Time) (int64, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE email = $1 AND revoked_at IS NULL`, email, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateLastSeen sets last_seen_at. Revoked sessions are left untouched.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}
