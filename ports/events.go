package ports

import "context"

// EventPublisher notifies other components about linking outcomes.
// Publishing is best effort; a failed publish never fails the
// operation that produced the event.
type EventPublisher interface {
	PublishLinkCreated(ctx context.Context, walletID string, platformUserID int64) error
	PublishMembershipChanged(ctx context.Context, walletID string, member bool) error
}
