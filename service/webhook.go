package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/chainterm/gatekeeper/core"
)

const (
	replyInstructions = "Please start the authentication from the website."
	replyStale        = "Invalid or expired authentication attempt. Please try again from the website."
	replyTransient    = "Error during verification, please try again."
	replySuccess      = "Verification successful! Click below to join the group:"
)

// commandKind classifies an inbound update into the closed set of
// events the state machine recognizes.
type commandKind int

const (
	cmdUnrecognized commandKind = iota
	cmdStartBare
	cmdStart
)

type command struct {
	kind   commandKind
	state  string
	chatID int64
	from   *tgbotapi.User
}

// parseUpdate classifies an update. The second return is false when
// the update carries nothing the machine can act on (no message, no
// sender); such updates are ignored entirely.
func parseUpdate(update tgbotapi.Update) (command, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return command{}, false
	}

	cmd := command{chatID: msg.Chat.ID, from: msg.From}
	if !msg.IsCommand() {
		cmd.kind = cmdUnrecognized
		return cmd, true
	}
	if msg.Command() != "start" {
		cmd.kind = cmdUnrecognized
		return cmd, true
	}

	state := strings.TrimSpace(msg.CommandArguments())
	if state == "" {
		cmd.kind = cmdStartBare
		return cmd, true
	}
	cmd.kind = cmdStart
	cmd.state = state
	return cmd, true
}

// HandleUpdate drives one webhook delivery through the linking state
// machine. All outcomes, including internal failures, end in a chat
// reply so the user is never left without feedback; reply delivery
// failures are logged but never treated as a failure of the linking
// operation itself.
func (s *LinkService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	cmd, ok := parseUpdate(update)
	if !ok {
		return
	}

	log := s.logger.WithFields(logrus.Fields{
		"chat_id":          cmd.chatID,
		"platform_user_id": cmd.from.ID,
	})

	switch cmd.kind {
	case cmdUnrecognized, cmdStartBare:
		// Terminal informational state: no stored record is touched, so
		// redelivery of the same update is harmless.
		s.reply(ctx, cmd.chatID, replyInstructions)
		return
	case cmdStart:
	}

	auth, err := s.resolveAndConsume(ctx, cmd.state)
	if err != nil {
		if !errors.Is(err, core.ErrStateNotFound) {
			log.WithError(err).Error("auth state lookup failed")
			s.reply(ctx, cmd.chatID, replyTransient)
			return
		}
		// Missing, consumed or stale: also covers duplicate delivery
		// and replay, which must look identical to "never existed".
		log.Info("rejected unresolvable auth state")
		s.reply(ctx, cmd.chatID, replyStale)
		return
	}
	log = log.WithField("wallet", auth.WalletID)

	// The balance may have moved since login; re-run the gate. The
	// state is already consumed, so a failed check needs no explicit
	// invalidation.
	if !s.balance.Check(ctx, auth.WalletID) {
		required, ticker := s.balance.Required()
		log.Info("linking denied, insufficient balance")
		s.reply(ctx, cmd.chatID, fmt.Sprintf("Insufficient token balance. Required: %s %s", required.String(), ticker))
		return
	}

	// Invite before persisting the link: a crash between the two steps
	// must not leave a "linked but never invited" record behind.
	invite, err := s.messenger.CreateInvite(ctx, inviteTTL)
	if err != nil {
		log.WithError(err).Error("invite creation failed")
		s.reply(ctx, cmd.chatID, replyTransient)
		return
	}

	link := core.IdentityLink{
		WalletID:         auth.WalletID,
		PlatformUserID:   cmd.from.ID,
		PlatformUsername: cmd.from.UserName,
		GroupMember:      false,
		LastUpdate:       time.Now(),
	}
	if err := s.saveLink(ctx, link); err != nil {
		log.WithError(err).Error("identity link persistence failed")
		s.reply(ctx, cmd.chatID, replyTransient)
		return
	}

	if err := s.events.PublishLinkCreated(ctx, link.WalletID, link.PlatformUserID); err != nil {
		log.WithError(err).Warn("failed to publish link event")
	}

	if err := s.messenger.SendInvite(ctx, cmd.chatID, replySuccess, invite); err != nil {
		// The link is complete; the user can fetch a fresh invite from
		// the site or retry /start with a new state.
		log.WithError(err).Error("failed to deliver invite reply")
		return
	}

	log.Info("linking completed")
}

func (s *LinkService) reply(ctx context.Context, chatID int64, text string) {
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		s.logger.WithFields(logrus.Fields{"chat_id": chatID}).
			WithError(err).Error("failed to send reply")
	}
}
