// Package wallet verifies detached wallet signatures over the fixed
// login challenge. Verification is pure: no I/O, no side effects, and
// malformed input is rejected by returning false rather than panicking.
package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"github.com/chainterm/gatekeeper/core"
)

// ChallengeMessage is the only message a login signature is ever
// verified against. A valid signature over anything else must fail.
const ChallengeMessage = "Please sign this message to verify your identity."

// Scheme classifies a wallet id: 0x-prefixed hex addresses sign with
// EIP-191 personal_sign, base58 32-byte public keys with ed25519.
func Scheme(walletID string) (core.WalletScheme, error) {
	if common.IsHexAddress(walletID) {
		return core.SchemeEVM, nil
	}
	raw, err := base58.Decode(walletID)
	if err == nil && len(raw) == ed25519.PublicKeySize {
		return core.SchemeEd25519, nil
	}
	return "", core.ErrInvalidWallet
}

// VerifyEd25519 checks a detached ed25519 signature. All length checks
// happen here so that truncated input can never reach the curve math.
func VerifyEd25519(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// VerifyEVM checks an EIP-191 personal_sign signature by recovering
// the signer and comparing it against the expected address.
func VerifyEVM(message, signature []byte, address common.Address) bool {
	if len(signature) != 65 {
		return false
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := ethcrypto.Keccak256([]byte(prefixed))
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}
	return ethcrypto.PubkeyToAddress(*pub) == address
}

// VerifyChallenge verifies a wire-format signature from walletID over
// the fixed challenge message. Ed25519 signatures arrive base58
// encoded, EVM signatures 0x-hex encoded.
func VerifyChallenge(walletID, signature string) error {
	scheme, err := Scheme(walletID)
	if err != nil {
		return err
	}

	switch scheme {
	case core.SchemeEd25519:
		pub, err := base58.Decode(walletID)
		if err != nil {
			return core.ErrInvalidWallet
		}
		sig, err := base58.Decode(signature)
		if err != nil {
			return core.ErrInvalidSignature
		}
		if !VerifyEd25519([]byte(ChallengeMessage), sig, pub) {
			return core.ErrInvalidSignature
		}
		return nil

	case core.SchemeEVM:
		sig, err := hexutil.Decode(signature)
		if err != nil {
			return core.ErrInvalidSignature
		}
		if !VerifyEVM([]byte(ChallengeMessage), sig, common.HexToAddress(walletID)) {
			return core.ErrInvalidSignature
		}
		return nil
	}

	return core.ErrInvalidWallet
}
