package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/ports"
)

const (
	authStatePrefix = "auth:"
	linkPrefix      = "user:"

	// linkedIndexKey is the secondary index of linked wallets, so the
	// reconciler never has to scan the whole keyspace.
	linkedIndexKey = "users:linked"

	// inviteTTL bounds every invite link we hand out.
	inviteTTL = 5 * time.Minute
)

// LinkService brokers the short-lived auth state that bridges a web
// session to the bot conversation, and owns the persisted identity
// links.
type LinkService struct {
	store     ports.Store
	balance   *BalanceService
	messenger ports.Messenger
	events    ports.EventPublisher
	logger    *logrus.Logger

	botName  string
	stateTTL time.Duration
}

// NewLinkService creates the linking service.
func NewLinkService(
	store ports.Store,
	balance *BalanceService,
	messenger ports.Messenger,
	events ports.EventPublisher,
	botName string,
	stateTTL time.Duration,
	logger *logrus.Logger,
) *LinkService {
	return &LinkService{
		store:     store,
		balance:   balance,
		messenger: messenger,
		events:    events,
		logger:    logger,
		botName:   botName,
		stateTTL:  stateTTL,
	}
}

// BeginLink issues a fresh single-use state token for an authenticated
// wallet and returns the deep link that carries it into the bot chat.
func (s *LinkService) BeginLink(ctx context.Context, walletID string) (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}
	state := hex.EncodeToString(buf)

	payload, err := json.Marshal(core.AuthState{WalletID: walletID, IssuedAt: time.Now()})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal auth state: %w", err)
	}
	if err := s.store.Set(ctx, authStatePrefix+state, string(payload), s.stateTTL); err != nil {
		return "", "", err
	}

	deepLink := fmt.Sprintf("https://t.me/%s?start=%s", s.botName, state)
	return state, deepLink, nil
}

// resolveAndConsume atomically claims a state token. Missing, already
// consumed and over-age tokens are indistinguishable: all are
// core.ErrStateNotFound. The age check is independent of the store's
// TTL eviction, whose timing is not exact.
func (s *LinkService) resolveAndConsume(ctx context.Context, state string) (core.AuthState, error) {
	payload, found, err := s.store.GetDel(ctx, authStatePrefix+state)
	if err != nil {
		return core.AuthState{}, err
	}
	if !found {
		return core.AuthState{}, core.ErrStateNotFound
	}

	var auth core.AuthState
	if err := json.Unmarshal([]byte(payload), &auth); err != nil {
		s.logger.WithError(err).Warn("discarding undecodable auth state")
		return core.AuthState{}, core.ErrStateNotFound
	}
	if auth.WalletID == "" || time.Since(auth.IssuedAt) > s.stateTTL {
		return core.AuthState{}, core.ErrStateNotFound
	}
	return auth, nil
}

// Invalidate removes a state token without resolving it.
func (s *LinkService) Invalidate(ctx context.Context, state string) error {
	return s.store.Del(ctx, authStatePrefix+state)
}

// Link returns the stored identity link for a wallet, or
// core.ErrNotLinked.
func (s *LinkService) Link(ctx context.Context, walletID string) (core.IdentityLink, error) {
	payload, found, err := s.store.Get(ctx, linkPrefix+walletID)
	if err != nil {
		return core.IdentityLink{}, err
	}
	if !found {
		return core.IdentityLink{}, core.ErrNotLinked
	}

	var link core.IdentityLink
	if err := json.Unmarshal([]byte(payload), &link); err != nil {
		return core.IdentityLink{}, fmt.Errorf("failed to decode identity link: %w", err)
	}
	return link, nil
}

// saveLink persists an identity link and keeps the linked-wallet index
// in step.
func (s *LinkService) saveLink(ctx context.Context, link core.IdentityLink) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal identity link: %w", err)
	}
	if err := s.store.Set(ctx, linkPrefix+link.WalletID, string(payload), 0); err != nil {
		return err
	}
	return s.store.AddToSet(ctx, linkedIndexKey, link.WalletID)
}

// InviteLinked creates a fresh single-use invite for a wallet that has
// already completed linking.
func (s *LinkService) InviteLinked(ctx context.Context, walletID string) (core.Invite, error) {
	if _, err := s.Link(ctx, walletID); err != nil {
		return core.Invite{}, err
	}
	return s.messenger.CreateInvite(ctx, inviteTTL)
}
