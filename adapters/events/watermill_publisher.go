package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/chainterm/gatekeeper/ports"
)

const (
	// TopicLinkCreated carries completed wallet-to-platform links.
	TopicLinkCreated = "gatekeeper.link.created"

	// TopicMembershipChanged carries reconciler corrections.
	TopicMembershipChanged = "gatekeeper.membership.changed"
)

// LinkCreatedEvent is published when a /start flow completes.
type LinkCreatedEvent struct {
	WalletID       string    `json:"wallet_id"`
	PlatformUserID int64     `json:"platform_user_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// MembershipChangedEvent is published when the reconciler corrects a
// stored membership flag.
type MembershipChangedEvent struct {
	WalletID   string    `json:"wallet_id"`
	Member     bool      `json:"member"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher port.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps an existing watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishLinkCreated(_ context.Context, walletID string, platformUserID int64) error {
	return p.publish(TopicLinkCreated, LinkCreatedEvent{
		WalletID:       walletID,
		PlatformUserID: platformUserID,
		OccurredAt:     time.Now(),
	})
}

func (p *WatermillPublisher) PublishMembershipChanged(_ context.Context, walletID string, member bool) error {
	return p.publish(TopicMembershipChanged, MembershipChangedEvent{
		WalletID:   walletID,
		Member:     member,
		OccurredAt: time.Now(),
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
