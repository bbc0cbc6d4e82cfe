package core

import "errors"

var (
	// ErrNoSession is the single outcome for any session that cannot
	// be opened: tampered, sealed under another key, malformed, or
	// expired. Callers must not be able to tell these apart.
	ErrNoSession = errors.New("no valid session")

	// ErrInvalidSignature is returned when a wallet signature does not
	// verify against the challenge message.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidWallet is returned for wallet ids that are neither a
	// base58 ed25519 public key nor a 0x hex address.
	ErrInvalidWallet = errors.New("invalid wallet id")

	// ErrInsufficientBalance is returned when the balance gate denies
	// access. Retry exhaustion collapses into this as well.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrStateNotFound is the single outcome for auth-state tokens that
	// are missing, already consumed, or stale.
	ErrStateNotFound = errors.New("auth state not found")

	// ErrNotLinked is returned when an operation requires an existing
	// identity link and none is stored.
	ErrNotLinked = errors.New("wallet not linked")

	// ErrStoreOperationFailed is returned when the keyed store itself
	// fails, as opposed to a key being absent.
	ErrStoreOperationFailed = errors.New("store operation failed")

	// ErrInviteFailed is returned when the messaging platform refuses
	// to create an invite link.
	ErrInviteFailed = errors.New("invite creation failed")
)
