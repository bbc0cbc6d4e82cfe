package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/ports"
)

// mintAccountSize is the byte length of a base58-decoded account key.
const mintAccountSize = 32

// splTokenProgram owns all fungible token accounts on chain.
const splTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// BalanceService is the balance gate: it decides whether a wallet
// holds at least the configured threshold of the gated token.
type BalanceService struct {
	rpc       ports.RPCClient
	mint      string
	threshold decimal.Decimal
	ticker    string
	logger    *logrus.Logger
}

// NewBalanceService creates the gate for one token mint and threshold.
func NewBalanceService(rpc ports.RPCClient, mint string, threshold decimal.Decimal, ticker string, logger *logrus.Logger) *BalanceService {
	return &BalanceService{
		rpc:       rpc,
		mint:      mint,
		threshold: threshold,
		ticker:    ticker,
		logger:    logger,
	}
}

// Required returns the configured threshold and display ticker.
func (s *BalanceService) Required() (decimal.Decimal, string) {
	return s.threshold, s.ticker
}

// Check reports whether the wallet passes the gate. It never errors:
// a malformed wallet, an exhausted retry budget and a genuinely short
// balance all deny access, but the reasons are logged apart so an
// operator can tell an RPC outage from a broke wallet.
func (s *BalanceService) Check(ctx context.Context, walletID string) bool {
	if s.threshold.IsZero() {
		return true
	}

	balance, err := s.TokenBalance(ctx, walletID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"wallet": walletID}).
			WithError(err).Warn("balance check failed, denying access")
		return false
	}

	raw, ok := new(big.Int).SetString(balance.Raw, 10)
	if !ok {
		s.logger.WithFields(logrus.Fields{"wallet": walletID, "raw": balance.Raw}).
			Error("unparseable raw balance, denying access")
		return false
	}

	required := s.requiredRaw(balance.Decimals)
	sufficient := raw.Cmp(required) >= 0
	s.logger.WithFields(logrus.Fields{
		"wallet":     walletID,
		"raw":        balance.Raw,
		"required":   required.String(),
		"decimals":   balance.Decimals,
		"sufficient": sufficient,
	}).Debug("balance gate decision")
	return sufficient
}

// TokenBalance resolves the wallet's holding of the gated token.
// Malformed identifiers fail immediately without touching the RPC
// pool; a wallet with no matching token account holds zero.
func (s *BalanceService) TokenBalance(ctx context.Context, walletID string) (core.Balance, error) {
	if !validAccountKey(walletID) {
		return core.Balance{}, core.ErrInvalidWallet
	}
	if !validAccountKey(s.mint) {
		return core.Balance{}, fmt.Errorf("invalid token mint %q", s.mint)
	}

	account, found, err := s.findTokenAccount(ctx, walletID)
	if err != nil {
		return core.Balance{}, err
	}
	if !found {
		// No account for this mint at all: equivalent to zero.
		return core.Balance{Raw: "0", Decimals: 0}, nil
	}

	return s.accountBalance(ctx, account)
}

func (s *BalanceService) findTokenAccount(ctx context.Context, walletID string) (string, bool, error) {
	result, err := s.rpc.Call(ctx, "getTokenAccountsByOwner",
		walletID,
		map[string]string{"programId": splTokenProgram},
		map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
	)
	if err != nil {
		return "", false, fmt.Errorf("resolve token accounts: %w", err)
	}

	var decoded struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint string `json:"mint"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return "", false, fmt.Errorf("decode token accounts: %w", err)
	}

	for _, account := range decoded.Value {
		if account.Account.Data.Parsed.Info.Mint == s.mint {
			return account.Pubkey, true, nil
		}
	}
	return "", false, nil
}

func (s *BalanceService) accountBalance(ctx context.Context, account string) (core.Balance, error) {
	result, err := s.rpc.Call(ctx, "getTokenAccountBalance", account)
	if err != nil {
		return core.Balance{}, fmt.Errorf("fetch account balance: %w", err)
	}

	var decoded struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return core.Balance{}, fmt.Errorf("decode account balance: %w", err)
	}
	if decoded.Value.Amount == "" {
		return core.Balance{}, fmt.Errorf("empty balance for account %s", account)
	}

	return core.Balance{Raw: decoded.Value.Amount, Decimals: decoded.Value.Decimals}, nil
}

// requiredRaw converts the human-denominated threshold into raw
// integer units. Integer arithmetic only: the shift is exact and any
// sub-unit remainder rounds the requirement up.
func (s *BalanceService) requiredRaw(decimals uint8) *big.Int {
	return s.threshold.Shift(int32(decimals)).Ceil().BigInt()
}

func validAccountKey(key string) bool {
	raw, err := base58.Decode(key)
	return err == nil && len(raw) == mintAccountSize
}
