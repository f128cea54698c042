package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/platform/detached"
	"careers-portal/backend/internal/platform/requestctx"
	roledomain "careers-portal/backend/internal/role/domain"
	"careers-portal/backend/internal/security"
	"careers-portal/backend/internal/session/domain"
	"careers-portal/backend/internal/session/repository"
	"careers-portal/backend/internal/telemetry"
)

// sessionMeta marks how the session was established.
const sessionMeta = `{"method":"magic_link"}`

// ManagerConfig holds the session lifetimes.
type ManagerConfig struct {
	SessionTTL time.Duration
	// LastSeenInterval skips a last-seen write when the stored value is younger than this.
	LastSeenInterval time.Duration
}

// Manager is the only writer of sessions. It enforces one active session per email.
type Manager struct {
	repo      repository.Repository
	refresher *detached.Group
	logger    *zap.Logger
	metrics   *telemetry.Metrics
	cfg       ManagerConfig

	// NowFunc is exposed for tests.
	NowFunc func() time.Time
}

// NewManager returns a Manager. refresher runs the best-effort last-seen updates.
func NewManager(repo repository.Repository, refresher *detached.Group, logger *zap.Logger, cfg ManagerConfig) *Manager {
	return &Manager{
		repo:      repo,
		refresher: refresher,
		logger:    logger,
		cfg:       cfg,
		NowFunc:   time.Now,
	}
}

func (m *Manager) WithMetrics(metrics *telemetry.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// CreateSession supersedes every active session for email and mints a new one. The
// returned secret goes into the cookie and is not recoverable afterwards. An unknown role
// is stored as candidate.
//
// Supersession and insert are two writes without a transaction: a failure between them
// leaves the user logged out, never with two sessions.
func (m *Manager) CreateSession(ctx context.Context, email string, role roledomain.Role) (security.Secret, *domain.Session, error) {
	secret, err := security.GenerateSecret()
	if err != nil {
		return "", nil, fmt.Errorf("session: generate secret: %w", err)
	}
	now := m.NowFunc().UTC()

	revoked, err := m.repo.RevokeActiveByEmail(ctx, email, now)
	if err != nil {
		return "", nil, autherr.Unavailable("session: supersede", err)
	}
	if revoked > 0 {
		m.logger.Info("session: superseded previous sessions", zap.Int64("count", revoked))
	}

	client := requestctx.GetClient(ctx)
	s := &domain.Session{
		ID:          uuid.New().String(),
		SessionHash: security.HashSecret(secret.Reveal()),
		Email:       email,
		Role:        role.OrCandidate(),
		ExpiresAt:   now.Add(m.cfg.SessionTTL),
		LastSeenAt:  &now,
		IP:          client.IP,
		UserAgent:   client.UserAgent,
		Meta:        sessionMeta,
		CreatedAt:   now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return "", nil, autherr.Unavailable("session: create", err)
	}
	return secret, s, nil
}

// ValidateSession returns the active session for raw. Missing, unknown, revoked and expired
// sessions all yield ErrUnauthenticated; datastore failures yield ErrDependencyUnavailable.
// On success last_seen_at is refreshed in the background.
func (m *Manager) ValidateSession(ctx context.Context, raw string) (*domain.Session, error) {
	if raw == "" {
		m.metrics.SessionValidated(ctx, telemetry.OutcomeFailure)
		return nil, autherr.ErrUnauthenticated
	}
	s, err := m.repo.GetByHash(ctx, security.HashSecret(raw))
	if err != nil {
		m.metrics.SessionValidated(ctx, telemetry.OutcomeError)
		return nil, autherr.Unavailable("session: lookup", err)
	}
	now := m.NowFunc().UTC()
	if s == nil || !s.Active(now) {
		m.metrics.SessionValidated(ctx, telemetry.OutcomeFailure)
		return nil, autherr.ErrUnauthenticated
	}
	m.metrics.SessionValidated(ctx, telemetry.OutcomeSuccess)
	m.touch(ctx, s, now)
	return s, nil
}

func (m *Manager) touch(ctx context.Context, s *domain.Session, now time.Time) {
	if s.LastSeenAt != nil && now.Sub(*s.LastSeenAt) < m.cfg.LastSeenInterval {
		return
	}
	id := s.ID
	m.refresher.Go(ctx, "session_last_seen", func(ctx context.Context) error {
		return m.repo.UpdateLastSeen(ctx, id, now)
	})
}

// Revoke ends every active session for email.
func (m *Manager) Revoke(ctx context.Context, email string) error {
	if _, err := m.repo.RevokeActiveByEmail(ctx, email, m.NowFunc().UTC()); err != nil {
		return autherr.Unavailable("session: revoke", err)
	}
	return nil
}
