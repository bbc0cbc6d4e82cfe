package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/chainterm/gatekeeper/core"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testWallet(fill byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	return base58.Encode(key)
}

// fakeRPC answers JSON-RPC calls from a canned handler and records
// every call it sees.
type fakeRPC struct {
	mu      sync.Mutex
	calls   []string
	handler func(method string, params []any) (json.RawMessage, error)
}

func (f *fakeRPC) Call(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
	return f.handler(method, params)
}

func (f *fakeRPC) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// tokenAccountsJSON builds a getTokenAccountsByOwner result holding a
// single account for the given mint.
func tokenAccountsJSON(pubkey, mint string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"value":[{"pubkey":%q,"account":{"data":{"parsed":{"info":{"mint":%q}}}}}]}`, pubkey, mint))
}

func tokenBalanceJSON(amount string, decimals uint8) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"value":{"amount":%q,"decimals":%d}}`, amount, decimals))
}

type sentMessage struct {
	chatID int64
	text   string
}

// fakeMessenger records replies and invite requests.
type fakeMessenger struct {
	mu sync.Mutex

	messages []sentMessage
	invites  []core.Invite

	inviteErr error
	sendErr   error

	statuses  map[int64]core.MemberStatus
	statusErr map[int64]error

	webhookURL string
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeMessenger) SendInvite(ctx context.Context, chatID int64, text string, _ core.Invite) error {
	return f.SendMessage(ctx, chatID, text)
}

func (f *fakeMessenger) CreateInvite(_ context.Context, ttl time.Duration) (core.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inviteErr != nil {
		return core.Invite{}, f.inviteErr
	}
	invite := core.Invite{
		URL:       fmt.Sprintf("https://t.me/+invite%d", len(f.invites)),
		SingleUse: true,
		ExpiresAt: time.Now().Add(ttl),
	}
	f.invites = append(f.invites, invite)
	return invite, nil
}

func (f *fakeMessenger) MemberStatus(_ context.Context, userID int64) (core.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.statusErr[userID]; ok {
		return "", err
	}
	if status, ok := f.statuses[userID]; ok {
		return status, nil
	}
	return core.StatusLeft, nil
}

func (f *fakeMessenger) SetWebhook(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhookURL = url
	return nil
}

func (f *fakeMessenger) DeleteWebhook(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhookURL = ""
	return nil
}

func (f *fakeMessenger) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

func (f *fakeMessenger) inviteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invites)
}

// fakeEvents counts published events.
type fakeEvents struct {
	mu          sync.Mutex
	linkCreated []string
	membership  []string
}

func (f *fakeEvents) PublishLinkCreated(_ context.Context, walletID string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCreated = append(f.linkCreated, walletID)
	return nil
}

func (f *fakeEvents) PublishMembershipChanged(_ context.Context, walletID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.membership = append(f.membership, walletID)
	return nil
}
