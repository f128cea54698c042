package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	auditdomain "careers-portal/backend/internal/audit/domain"
	magiclink "careers-portal/backend/internal/magiclink/service"
	"careers-portal/backend/internal/mail"
	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/platform/requestctx"
	"careers-portal/backend/internal/ratelimit"
	roledomain "careers-portal/backend/internal/role/domain"
	rolerepo "careers-portal/backend/internal/role/repository"
	"careers-portal/backend/internal/security"
	sessiondomain "careers-portal/backend/internal/session/domain"
	sessionsvc "careers-portal/backend/internal/session/service"
	"careers-portal/backend/internal/telemetry"
)

// Audit listing bounds.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

// RateLimiter throttles link requests. Implemented by ratelimit.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, email, ip string) error
}

// AuditLister reads recent audit events for the admin view.
type AuditLister interface {
	ListRecent(ctx context.Context, limit int) ([]*auditdomain.Event, error)
}

// LoginResult is the outcome of a successful redemption. Secret goes into the cookie.
type LoginResult struct {
	Secret  security.Secret
	Session *sessiondomain.Session
	Next    string
}

// AccessService ties issuance, redemption, sessions and audit together for the transport layer.
type AccessService struct {
	issuer    *magiclink.Issuer
	verifier  *magiclink.Verifier
	sessions  *sessionsvc.Manager
	roles     rolerepo.Reader
	audit     magiclink.AuditRecorder
	events    AuditLister
	nextPaths *magiclink.NextPathPolicy
	limiter   RateLimiter
	metrics   *telemetry.Metrics
	logger    *zap.Logger
}

// NewAccessService returns an AccessService with the given dependencies.
func NewAccessService(
	issuer *magiclink.Issuer,
	verifier *magiclink.Verifier,
	sessions *sessionsvc.Manager,
	roles rolerepo.Reader,
	audit magiclink.AuditRecorder,
	events AuditLister,
	nextPaths *magiclink.NextPathPolicy,
	logger *zap.Logger,
) *AccessService {
	return &AccessService{
		issuer:    issuer,
		verifier:  verifier,
		sessions:  sessions,
		roles:     roles,
		audit:     audit,
		events:    events,
		nextPaths: nextPaths,
		logger:    logger,
	}
}

// WithRateLimiter enables issuance throttling. Without it every request is issued.
func (s *AccessService) WithRateLimiter(l RateLimiter) *AccessService {
	s.limiter = l
	return s
}

func (s *AccessService) WithMetrics(m *telemetry.Metrics) *AccessService {
	s.metrics = m
	return s
}

// RequestLink starts issuance for rawEmail. It never reports whether the address is known,
// valid or throttled; the caller always answers success.
func (s *AccessService) RequestLink(ctx context.Context, rawEmail, rawNext string) {
	next := s.nextPaths.Sanitize(rawNext)
	if s.limiter != nil {
		if email, err := mail.Normalize(rawEmail); err == nil {
			err := s.limiter.Allow(ctx, email, requestctx.GetClient(ctx).IP)
			switch {
			case errors.Is(err, ratelimit.ErrRateLimited):
				s.metrics.IssueRateLimited(ctx)
				s.audit.Record(ctx, auditdomain.ActionIssueRateLimited, email, nil)
				return
			case err != nil:
				s.logger.Warn("access: rate limiter unavailable, issuing anyway", zap.Error(err))
			}
		}
	}
	s.issuer.IssueToken(ctx, rawEmail, next)
}

// CompleteLogin redeems raw and opens a session for its owner. Every redemption failure is
// audited with its precise reason; callers only see that it failed.
func (s *AccessService) CompleteLogin(ctx context.Context, raw, rawNext string) (*LoginResult, error) {
	email, err := s.verifier.Redeem(ctx, raw)
	if err != nil {
		s.audit.Record(ctx, auditdomain.ActionRedeemFailed, "", map[string]string{"reason": autherr.Reason(err)})
		return nil, err
	}

	role := s.resolveRole(ctx, email)
	secret, sess, err := s.sessions.CreateSession(ctx, email, role)
	if err != nil {
		s.audit.Record(ctx, auditdomain.ActionRedeemFailed, email, map[string]string{"reason": autherr.ReasonUnavailable})
		return nil, err
	}
	s.audit.Record(ctx, auditdomain.ActionRedeemSuccess, email, map[string]string{
		"session_id": sess.ID,
		"role":       string(sess.Role),
	})
	return &LoginResult{Secret: secret, Session: sess, Next: s.nextPaths.Sanitize(rawNext)}, nil
}

// resolveRole reads the operator-granted role. A missing record or a failed lookup yields
// candidate, so login can never raise privileges on its own.
func (s *AccessService) resolveRole(ctx context.Context, email string) roledomain.Role {
	rec, err := s.roles.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("access: role lookup failed, using candidate", zap.Error(err))
		return roledomain.RoleCandidate
	}
	if rec == nil {
		return roledomain.RoleCandidate
	}
	return rec.Role.OrCandidate()
}

// CheckSession returns the active session for raw.
func (s *AccessService) CheckSession(ctx context.Context, raw string) (*sessiondomain.Session, error) {
	return s.sessions.ValidateSession(ctx, raw)
}

// Logout revokes every session of the caller. Logging out without a valid session is a no-op.
func (s *AccessService) Logout(ctx context.Context, raw string) error {
	sess, err := s.sessions.ValidateSession(ctx, raw)
	if errors.Is(err, autherr.ErrUnauthenticated) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, sess.Email); err != nil {
		s.audit.Record(ctx, auditdomain.ActionRevokeFailed, sess.Email, map[string]string{"session_id": sess.ID})
		return err
	}
	s.audit.Record(ctx, auditdomain.ActionLogout, sess.Email, map[string]string{"session_id": sess.ID})
	return nil
}

// ListAuditEvents returns the newest events. limit is clamped to [1, MaxAuditLimit];
// zero means DefaultAuditLimit.
func (s *AccessService) ListAuditEvents(ctx context.Context, limit int) ([]*auditdomain.Event, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	events, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, autherr.Unavailable("access: list audit events", err)
	}
	return events, nil
}

