// Package autherr holds the error taxonomy shared by the access subsystem.
// HTTP handlers collapse token and session failures into one generic response;
// the distinct sentinels exist so audit records and logs can tell them apart.
package autherr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when redemption is attempted with an empty secret.
	ErrMissingToken = errors.New("access token missing")
	// ErrTokenNotFound is returned when no access token matches the presented secret.
	ErrTokenNotFound = errors.New("access token not found")
	// ErrTokenExpired is returned when the access token's expiry has passed.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenUsed is returned when the access token was already redeemed.
	ErrTokenUsed = errors.New("access token already used")
	// ErrClaimRaceLost is returned when another redemption claimed the token first.
	// It matches ErrTokenUsed under errors.Is.
	ErrClaimRaceLost = fmt.Errorf("%w: claimed concurrently", ErrTokenUsed)

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")

	// ErrMisconfigured is returned by configuration loading; startup must abort.
	ErrMisconfigured = errors.New("misconfigured")
	// ErrDependencyUnavailable wraps datastore and collaborator failures on the primary path.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Redemption failure reasons as recorded in audit metadata.
const (
	ReasonMissingToken = "missing_token"
	ReasonNotFound     = "not_found"
	ReasonExpired      = "expired"
	ReasonUsed         = "used"
	ReasonRaceLost     = "race_lost"
	ReasonUnavailable  = "unavailable"
)

// Reason maps a redemption error to its audit reason code. ErrClaimRaceLost is checked
// before ErrTokenUsed since it wraps it.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return ReasonMissingToken
	case errors.Is(err, ErrTokenNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, ErrClaimRaceLost):
		return ReasonRaceLost
	case errors.Is(err, ErrTokenUsed):
		return ReasonUsed
	default:
		return ReasonUnavailable
	}
}

// Unavailable wraps err so that errors.Is(result, ErrDependencyUnavailable) holds
// while the underlying cause is kept for logging.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependencyUnavailable, err)
}
