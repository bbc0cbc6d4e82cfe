package ports

import (
	"context"
	"time"

	"github.com/chainterm/gatekeeper/core"
)

// Messenger is the messaging-platform bot API as seen by the core.
type Messenger interface {
	// SendMessage delivers a plain text reply to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error

	// SendInvite delivers a reply carrying the invite as a join button.
	SendInvite(ctx context.Context, chatID int64, text string, invite core.Invite) error

	// CreateInvite requests a single-use invite link for the target
	// group, expiring after ttl.
	CreateInvite(ctx context.Context, ttl time.Duration) (core.Invite, error)

	// MemberStatus reports a user's membership state in the target
	// group.
	MemberStatus(ctx context.Context, userID int64) (core.MemberStatus, error)

	// SetWebhook registers the platform callback URL. Idempotent.
	SetWebhook(ctx context.Context, url string) error

	// DeleteWebhook clears the platform callback URL. Idempotent.
	DeleteWebhook(ctx context.Context) error
}
