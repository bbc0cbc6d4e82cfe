package core

import "time"

// WalletScheme identifies the signature scheme a wallet id belongs to.
type WalletScheme string

const (
	// SchemeEd25519 covers base58-encoded ed25519 public keys.
	SchemeEd25519 WalletScheme = "ed25519"

	// SchemeEVM covers 0x-prefixed hex addresses signing with
	// EIP-191 personal_sign.
	SchemeEVM WalletScheme = "evm"
)

// Session is the record sealed into the client-held cookie. The server
// keeps no copy; a session exists only as long as the client can
// present a token that decrypts and has not expired.
type Session struct {
	WalletID  string    `json:"wallet_id"`
	Verified  bool      `json:"verified"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session must be treated as absent.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthState bridges an authenticated web session to an out-of-band bot
// conversation. Stored under the random state token, consumed exactly
// once.
type AuthState struct {
	WalletID string    `json:"wallet_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// IdentityLink is the persisted association between a wallet and a
// messaging-platform account. GroupMember is only flipped by the
// reconciler observing actual membership.
type IdentityLink struct {
	WalletID         string    `json:"wallet_id"`
	PlatformUserID   int64     `json:"platform_user_id"`
	PlatformUsername string    `json:"platform_username"`
	GroupMember      bool      `json:"group_member"`
	LastUpdate       time.Time `json:"last_update"`
}

// Invite is a single-use, time-limited admission link. Ephemeral: it
// is never persisted beyond the reply that carries it.
type Invite struct {
	URL       string    `json:"url"`
	SingleUse bool      `json:"single_use"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Balance is the observed gated-token holding of a wallet, in raw
// integer units plus the mint's decimal precision.
type Balance struct {
	Raw      string `json:"raw"`
	Decimals uint8  `json:"decimals"`
}

// MemberStatus is the platform-reported membership state of a user in
// the target group.
type MemberStatus string

const (
	StatusMember        MemberStatus = "member"
	StatusAdministrator MemberStatus = "administrator"
	StatusCreator       MemberStatus = "creator"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// IsMember maps a platform status onto the stored boolean.
func (s MemberStatus) IsMember() bool {
	switch s {
	case StatusMember, StatusAdministrator, StatusCreator:
		return true
	default:
		return false
	}
}
