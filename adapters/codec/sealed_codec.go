// Package codec seals session records into opaque cookie tokens using
// AES-256-GCM under a key derived from the configured session secret.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/ports"
)

// SealedCodec implements ports.SessionCodec. Safe for concurrent use.
type SealedCodec struct {
	gcm cipher.AEAD
}

// NewSealedCodec derives an AES-256 key from the session secret via
// HKDF and builds the codec. The purpose string isolates this derived
// key from any other use of the same secret.
func NewSealedCodec(secret []byte) (*SealedCodec, error) {
	reader := hkdf.New(sha256.New, secret, []byte("gatekeeper-session"), []byte("session-cookie"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("codec: key derivation failed: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	return &SealedCodec{gcm: gcm}, nil
}

var _ ports.SessionCodec = (*SealedCodec)(nil)

// Issue seals a session record into an opaque token.
func (c *SealedCodec) Issue(session core.Session) (string, error) {
	plaintext, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("codec: marshal session: %w", err)
	}
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("codec: nonce generation failed: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts and validates a session token. Every failure mode,
// including expiry, collapses into core.ErrNoSession so the caller
// cannot probe for why a token was rejected.
func (c *SealedCodec) Open(token string) (core.Session, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return core.Session{}, core.ErrNoSession
	}
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return core.Session{}, core.ErrNoSession
	}
	plaintext, err := c.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return core.Session{}, core.ErrNoSession
	}
	var session core.Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return core.Session{}, core.ErrNoSession
	}
	if !session.Verified || session.Expired(time.Now()) {
		return core.Session{}, core.ErrNoSession
	}
	return session, nil
}
