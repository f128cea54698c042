package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditdomain "careers-portal/backend/internal/audit/domain"
	"careers-portal/backend/internal/magiclink/domain"
	"careers-portal/backend/internal/magiclink/repository"
	"careers-portal/backend/internal/mail"
	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/platform/detached"
	"careers-portal/backend/internal/security"
	"careers-portal/backend/internal/telemetry"
)

// VerifyPath is the browser route that redeems a link.
const VerifyPath = "/auth/verify"

// AuditRecorder records an auth event without blocking.
type AuditRecorder interface {
	Record(ctx context.Context, action, email string, meta map[string]string)
}

// LinkRecorder keeps issued links for development inspection.
type LinkRecorder interface {
	Put(email, link string)
}

// IssuerConfig holds the issuer's tunables.
type IssuerConfig struct {
	// PublicBaseURL is the absolute origin links point at.
	PublicBaseURL string
	TokenTTL      time.Duration
	MailTimeout   time.Duration
}

// Issuer creates single-use access tokens and hands links to the mailer. It never tells
// the caller whether an address is known: IssueToken returns before any datastore or mail
// work happens.
type Issuer struct {
	repo    repository.Repository
	sender  mail.Sender
	audit   AuditRecorder
	outbox  LinkRecorder
	metrics *telemetry.Metrics
	logger  *zap.Logger
	workers *detached.Group
	cfg     IssuerConfig
	baseURL *url.URL

	// NowFunc is exposed for tests.
	NowFunc func() time.Time
}

// NewIssuer returns an Issuer. workers bounds and tracks the background issuance tasks.
func NewIssuer(repo repository.Repository, sender mail.Sender, audit AuditRecorder, workers *detached.Group, logger *zap.Logger, cfg IssuerConfig) (*Issuer, error) {
	u, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("issuer: %w: public base URL %q", autherr.ErrMisconfigured, cfg.PublicBaseURL)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("issuer: %w: token TTL must be positive", autherr.ErrMisconfigured)
	}
	return &Issuer{
		repo:    repo,
		sender:  sender,
		audit:   audit,
		logger:  logger,
		workers: workers,
		cfg:     cfg,
		baseURL: u,
		NowFunc: time.Now,
	}, nil
}

// WithOutbox makes the issuer also store each link in o. Development only.
func (s *Issuer) WithOutbox(o LinkRecorder) *Issuer {
	s.outbox = o
	return s
}

func (s *Issuer) WithMetrics(m *telemetry.Metrics) *Issuer {
	s.metrics = m
	return s
}

// IssueToken schedules issuance for rawEmail. next must already be sanitized. Invalid
// addresses are dropped silently. The call does the same work, and takes the same time,
// for every input.
func (s *Issuer) IssueToken(ctx context.Context, rawEmail, next string) {
	s.workers.Go(ctx, "issue_token", func(wctx context.Context) error {
		email, err := mail.Normalize(rawEmail)
		if err != nil {
			s.logger.Debug("issuer: dropping invalid address")
			return nil
		}
		return s.Issue(wctx, email, next)
	})
}

// Issue persists a new token for a normalized email and sends the link. It is the
// synchronous body of IssueToken.
func (s *Issuer) Issue(ctx context.Context, email, next string) error {
	secret, err := security.GenerateSecret()
	if err != nil {
		return fmt.Errorf("issuer: generate secret: %w", err)
	}
	now := s.NowFunc().UTC()
	tok := &domain.AccessToken{
		ID:        uuid.New().String(),
		Email:     email,
		TokenHash: security.HashSecret(secret.Reveal()),
		ExpiresAt: now.Add(s.cfg.TokenTTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, tok); err != nil {
		return autherr.Unavailable("issuer: persist token", err)
	}
	s.metrics.TokenIssued(ctx)

	link := s.Link(secret, next)
	if s.outbox != nil {
		s.outbox.Put(email, link)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.MailTimeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, mail.MagicLinkMessage(email, link, s.cfg.TokenTTL)); err != nil {
		s.audit.Record(ctx, auditdomain.ActionLinkDeliveryFailed, email, map[string]string{"token_id": tok.ID})
		return fmt.Errorf("issuer: deliver link: %w", err)
	}
	return nil
}

// Link builds the redemption URL for secret. An empty next is omitted.
func (s *Issuer) Link(secret security.Secret, next string) string {
	u := *s.baseURL
	u.Path = VerifyPath
	q := url.Values{}
	q.Set("token", secret.Reveal())
	if next != "" {
		q.Set("next", next)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}
