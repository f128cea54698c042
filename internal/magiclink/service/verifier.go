package service

import (
	"context"
	"time"

	"careers-portal/backend/internal/magiclink/domain"
	"careers-portal/backend/internal/magiclink/repository"
	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/security"
	"careers-portal/backend/internal/telemetry"
)

// Verifier redeems access tokens exactly once.
type Verifier struct {
	repo    repository.Repository
	metrics *telemetry.Metrics

	// NowFunc is exposed for tests.
	NowFunc func() time.Time
}

func NewVerifier(repo repository.Repository) *Verifier {
	return &Verifier{repo: repo, NowFunc: time.Now}
}

func (v *Verifier) WithMetrics(m *telemetry.Metrics) *Verifier {
	v.metrics = m
	return v
}

// Redeem consumes the token for raw and returns the email it was issued to.
//
// Checks run in a fixed order: missing, not found, expired, already used. A token that
// passes them is claimed with a conditional update; if another redemption claimed it
// between the read and the update, ErrClaimRaceLost is returned. No lock is held and the
// claim is never retried.
func (v *Verifier) Redeem(ctx context.Context, raw string) (string, error) {
	email, err := v.redeem(ctx, raw)
	if err != nil {
		outcome := telemetry.OutcomeFailure
		if reason := autherr.Reason(err); reason == autherr.ReasonUnavailable {
			outcome = telemetry.OutcomeError
		}
		v.metrics.Redemption(ctx, outcome, autherr.Reason(err))
		return "", err
	}
	v.metrics.Redemption(ctx, telemetry.OutcomeSuccess, "")
	return email, nil
}

func (v *Verifier) redeem(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", autherr.ErrMissingToken
	}
	tok, err := v.repo.GetByHash(ctx, security.HashSecret(raw))
	if err != nil {
		return "", autherr.Unavailable("verifier: lookup", err)
	}
	if tok == nil {
		return "", autherr.ErrTokenNotFound
	}
	now := v.NowFunc().UTC()
	switch tok.State(now) {
	case domain.StateExpired:
		return "", autherr.ErrTokenExpired
	case domain.StateRedeemed:
		return "", autherr.ErrTokenUsed
	}
	claimed, err := v.repo.Claim(ctx, tok.ID, now)
	if err != nil {
		return "", autherr.Unavailable("verifier: claim", err)
	}
	if !claimed {
		return "", autherr.ErrClaimRaceLost
	}
	return tok.Email, nil
}
