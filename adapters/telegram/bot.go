// Package telegram adapts the Telegram Bot API to the Messenger port.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/ports"
)

// Bot wraps a bot client bound to the gated group.
type Bot struct {
	api     *tgbotapi.BotAPI
	groupID int64
}

// NewBot creates the messenger adapter for the target group.
func NewBot(api *tgbotapi.BotAPI, groupID int64) *Bot {
	return &Bot{api: api, groupID: groupID}
}

var _ ports.Messenger = (*Bot)(nil)

func (b *Bot) SendMessage(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) SendInvite(_ context.Context, chatID int64, text string, invite core.Invite) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Join Group", invite.URL),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	return nil
}

func (b *Bot) CreateInvite(_ context.Context, ttl time.Duration) (core.Invite, error) {
	expiresAt := time.Now().Add(ttl)
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: b.groupID},
		ExpireDate:  int(expiresAt.Unix()),
		MemberLimit: 1,
	}

	resp, err := b.api.Request(cfg)
	if err != nil {
		return core.Invite{}, fmt.Errorf("%w: %v", core.ErrInviteFailed, err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return core.Invite{}, fmt.Errorf("%w: decode response: %v", core.ErrInviteFailed, err)
	}

	return core.Invite{
		URL:       link.InviteLink,
		SingleUse: true,
		ExpiresAt: expiresAt,
	}, nil
}

func (b *Bot) MemberStatus(_ context.Context, userID int64) (core.MemberStatus, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: b.groupID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}
	return core.MemberStatus(member.Status), nil
}

func (b *Bot) SetWebhook(_ context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	wh.AllowedUpdates = []string{"message"}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

func (b *Bot) DeleteWebhook(_ context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}
