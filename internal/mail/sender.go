// Package mail delivers magic-link messages. Delivery is a collaborator: callers treat
// every send as best-effort and never surface its failure to the requester.
package mail

import (
	"context"
	"fmt"
	"time"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MagicLinkMessage builds the sign-in email for link, valid for ttl.
func MagicLinkMessage(to, link string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your sign-in link",
		Body: fmt.Sprintf("Use the link below to sign in to the careers portal.\n\n%s\n\n"+
			"The link works once and expires in %d minutes. If you did not ask for it, ignore this email.\n",
			link, int(ttl.Minutes())),
	}
}
