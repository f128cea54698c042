package domain

import (
	"errors"
	"time"
)

// Actions recorded by the access subsystem.
const (
	ActionRedeemFailed       = "redeem_failed"
	ActionRedeemSuccess      = "redeem_success"
	ActionLogout             = "logout"
	ActionRevokeFailed       = "revoke_failed"
	ActionLinkDeliveryFailed = "link_delivery_failed"
	ActionIssueRateLimited   = "issue_rate_limited"
)

// ErrEventRejected marks an event the store will never accept (bad encoding, constraint
// violation). Retrying it cannot succeed.
var ErrEventRejected = errors.New("audit event rejected")

// Event is one append-only audit record. Meta is a JSON object encoded as text.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent,omitempty"`
	Meta      string    `json:"meta,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
