package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/internal/wallet"
	"github.com/chainterm/gatekeeper/ports"
)

// AuthService turns a wallet signature into a sealed session token.
type AuthService struct {
	codec      ports.SessionCodec
	balance    *BalanceService
	sessionTTL time.Duration
	logger     *logrus.Logger
}

// NewAuthService creates the authentication service.
func NewAuthService(codec ports.SessionCodec, balance *BalanceService, sessionTTL time.Duration, logger *logrus.Logger) *AuthService {
	return &AuthService{
		codec:      codec,
		balance:    balance,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Login verifies the signature over the fixed challenge, runs the
// balance gate and seals a fresh session. The signature is verified
// server-side; nothing client-asserted is trusted.
func (s *AuthService) Login(ctx context.Context, walletID, signature string) (string, core.Session, error) {
	if err := wallet.VerifyChallenge(walletID, signature); err != nil {
		return "", core.Session{}, err
	}

	if !s.balance.Check(ctx, walletID) {
		return "", core.Session{}, core.ErrInsufficientBalance
	}

	now := time.Now()
	session := core.Session{
		WalletID:  walletID,
		Verified:  true,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.codec.Issue(session)
	if err != nil {
		return "", core.Session{}, fmt.Errorf("failed to seal session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"wallet": walletID, "expires_at": session.ExpiresAt}).
		Info("session issued")
	return token, session, nil
}

// Validate opens a client-held session token. Any failure is
// core.ErrNoSession; the caller should clear the cookie and force a
// fresh login.
func (s *AuthService) Validate(token string) (core.Session, error) {
	return s.codec.Open(token)
}

// SessionTTL returns the configured session lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}
