package domain

import "time"

// AccessToken is a single-use magic-link token. Only the hash of the raw secret is stored.
type AccessToken struct {
	ID        string
	Email     string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time // nil until redeemed; set at most once
	CreatedAt time.Time
}

// TokenState is the lifecycle state of an access token at a given instant.
type TokenState int

const (
	StateUnredeemed TokenState = iota
	StateRedeemed
	StateExpired
)

func (s TokenState) String() string {
	switch s {
	case StateUnredeemed:
		return "unredeemed"
	case StateRedeemed:
		return "redeemed"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// State reports the token's state at now. Expiry wins over redemption so that a dead
// token is reported the same way whether or not it was used.
func (t *AccessToken) State(now time.Time) TokenState {
	if !t.ExpiresAt.After(now) {
		return StateExpired
	}
	if t.UsedAt != nil {
		return StateRedeemed
	}
	return StateUnredeemed
}
