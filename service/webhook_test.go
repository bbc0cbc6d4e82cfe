package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainterm/gatekeeper/adapters/store"
	"github.com/chainterm/gatekeeper/core"
)

func startUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 10},
		From: &tgbotapi.User{ID: 7, UserName: "alice"},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len("/start")},
		},
	}}
}

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		ok     bool
		kind   commandKind
		state  string
	}{
		{
			name:   "no message",
			update: tgbotapi.Update{},
			ok:     false,
		},
		{
			name: "no sender",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Text: "/start abc", Chat: &tgbotapi.Chat{ID: 10},
			}},
			ok: false,
		},
		{
			name:   "plain text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 10}, From: &tgbotapi.User{ID: 7}}},
			ok:     true,
			kind:   cmdUnrecognized,
		},
		{
			name: "other command",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Text: "/help",
				Chat: &tgbotapi.Chat{ID: 10},
				From: &tgbotapi.User{ID: 7},
				Entities: []tgbotapi.MessageEntity{
					{Type: "bot_command", Offset: 0, Length: len("/help")},
				},
			}},
			ok:   true,
			kind: cmdUnrecognized,
		},
		{
			name:   "bare start",
			update: startUpdate("/start"),
			ok:     true,
			kind:   cmdStartBare,
		},
		{
			name:   "start with whitespace payload",
			update: startUpdate("/start   "),
			ok:     true,
			kind:   cmdStartBare,
		},
		{
			name:   "start with state",
			update: startUpdate("/start deadbeef"),
			ok:     true,
			kind:   cmdStart,
			state:  "deadbeef",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := parseUpdate(tt.update)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.kind, cmd.kind)
			assert.Equal(t, tt.state, cmd.state)
		})
	}
}

func TestHandleUpdateSuccess(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, eventsPub := newLinkFixture(t, "0")
	wallet := testWallet(1)

	state, _, err := links.BeginLink(ctx, wallet)
	require.NoError(t, err)

	links.HandleUpdate(ctx, startUpdate("/start "+state))

	require.Equal(t, 1, messenger.inviteCount())
	sent := messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(10), sent[0].chatID)
	assert.Equal(t, replySuccess, sent[0].text)

	link, err := links.Link(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(7), link.PlatformUserID)
	assert.Equal(t, "alice", link.PlatformUsername)
	assert.False(t, link.GroupMember)

	assert.Equal(t, []string{wallet}, eventsPub.linkCreated)
}

func TestHandleUpdateDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, _ := newLinkFixture(t, "0")
	wallet := testWallet(1)

	state, _, err := links.BeginLink(ctx, wallet)
	require.NoError(t, err)

	update := startUpdate("/start " + state)
	links.HandleUpdate(ctx, update)
	links.HandleUpdate(ctx, update)

	// The replayed delivery consumes nothing and mints no second invite.
	assert.Equal(t, 1, messenger.inviteCount())
	sent := messenger.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, replySuccess, sent[0].text)
	assert.Equal(t, replyStale, sent[1].text)
}

func TestHandleUpdateInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, eventsPub := newLinkFixture(t, "1000")
	wallet := testWallet(1)

	state, _, err := links.BeginLink(ctx, wallet)
	require.NoError(t, err)

	links.HandleUpdate(ctx, startUpdate("/start "+state))

	assert.Zero(t, messenger.inviteCount())
	sent := messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "Insufficient token balance")
	assert.Contains(t, sent[0].text, "1000 TKN")

	// No partial record may survive a failed gate.
	_, err = links.Link(ctx, wallet)
	assert.ErrorIs(t, err, core.ErrNotLinked)
	assert.Empty(t, eventsPub.linkCreated)

	// The state was still consumed.
	links.HandleUpdate(ctx, startUpdate("/start "+state))
	assert.Equal(t, replyStale, messenger.sentMessages()[1].text)
}

func TestHandleUpdateStaleState(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, _ := newLinkFixture(t, "0")

	links.HandleUpdate(ctx, startUpdate("/start "+strings.Repeat("00", 32)))

	assert.Zero(t, messenger.inviteCount())
	sent := messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, replyStale, sent[0].text)
}

func TestHandleUpdateBareStart(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, _ := newLinkFixture(t, "0")

	links.HandleUpdate(ctx, startUpdate("/start"))

	sent := messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, replyInstructions, sent[0].text)
}

func TestHandleUpdateInviteFailureLeavesNoLink(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, _ := newLinkFixture(t, "0")
	wallet := testWallet(1)
	messenger.inviteErr = errors.New("chat unavailable")

	state, _, err := links.BeginLink(ctx, wallet)
	require.NoError(t, err)

	links.HandleUpdate(ctx, startUpdate("/start "+state))

	sent := messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, replyTransient, sent[0].text)

	// Invite creation precedes persistence, so nothing was written.
	_, err = links.Link(ctx, wallet)
	assert.ErrorIs(t, err, core.ErrNotLinked)
}

func TestHandleUpdateReplyFailureKeepsLink(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, _ := newLinkFixture(t, "0")
	wallet := testWallet(1)
	messenger.sendErr = errors.New("blocked by user")

	state, _, err := links.BeginLink(ctx, wallet)
	require.NoError(t, err)

	links.HandleUpdate(ctx, startUpdate("/start "+state))

	// The undeliverable reply does not unwind the completed link.
	link, err := links.Link(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(7), link.PlatformUserID)
}

func TestHandleUpdateIgnoresNonMessage(t *testing.T) {
	ctx := context.Background()
	links, _, messenger, _ := newLinkFixture(t, "0")

	links.HandleUpdate(ctx, tgbotapi.Update{})

	assert.Empty(t, messenger.sentMessages())
	assert.Zero(t, messenger.inviteCount())
}

func TestHandleUpdateHolderPassesGate(t *testing.T) {
	ctx := context.Background()
	wallet := testWallet(1)

	memory := store.NewMemoryStore()
	messenger := &fakeMessenger{}
	eventsPub := &fakeEvents{}
	mint := testWallet(2)

	rpc := &fakeRPC{handler: func(method string, params []any) (json.RawMessage, error) {
		switch method {
		case "getTokenAccountsByOwner":
			return tokenAccountsJSON("AccountPubkey", mint), nil
		case "getTokenAccountBalance":
			return tokenBalanceJSON("1000000000", 6), nil
		}
		return nil, errors.New("unexpected method " + method)
	}}
	gate := NewBalanceService(rpc, mint, decimal.RequireFromString("1000"), "TKN", testLogger())
	links := NewLinkService(memory, gate, messenger, eventsPub, "gatekeeper_bot", 5*time.Minute, testLogger())

	state, _, err := links.BeginLink(ctx, wallet)
	require.NoError(t, err)

	links.HandleUpdate(ctx, startUpdate("/start "+state))

	require.Equal(t, 1, messenger.inviteCount())
	require.Len(t, messenger.sentMessages(), 1)
	assert.Equal(t, replySuccess, messenger.sentMessages()[0].text)
}
