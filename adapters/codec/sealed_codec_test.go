package codec

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainterm/gatekeeper/core"
)

func newCodec(t *testing.T, secret string) *SealedCodec {
	t.Helper()
	c, err := NewSealedCodec([]byte(secret))
	require.NoError(t, err)
	return c
}

func liveSession() core.Session {
	now := time.Now().Truncate(time.Second)
	return core.Session{
		WalletID:  "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Verified:  true,
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestSealedCodecRoundTrip(t *testing.T) {
	c := newCodec(t, "test-secret")
	session := liveSession()

	token, err := c.Issue(session)
	require.NoError(t, err)

	opened, err := c.Open(token)
	require.NoError(t, err)
	assert.Equal(t, session.WalletID, opened.WalletID)
	assert.True(t, opened.Verified)
	assert.True(t, session.ExpiresAt.Equal(opened.ExpiresAt))
}

func TestSealedCodecFailsClosed(t *testing.T) {
	c := newCodec(t, "test-secret")
	token, err := c.Issue(liveSession())
	require.NoError(t, err)

	t.Run("tampered token", func(t *testing.T) {
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0x01
		_, err = c.Open(base64.RawURLEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, core.ErrNoSession)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := newCodec(t, "another-secret")
		_, err := other.Open(token)
		assert.ErrorIs(t, err, core.ErrNoSession)
	})

	t.Run("expired session", func(t *testing.T) {
		expired := liveSession()
		expired.IssuedAt = time.Now().Add(-48 * time.Hour)
		expired.ExpiresAt = time.Now().Add(-24 * time.Hour)
		tok, err := c.Issue(expired)
		require.NoError(t, err)
		_, err = c.Open(tok)
		assert.ErrorIs(t, err, core.ErrNoSession)
	})

	t.Run("unverified session", func(t *testing.T) {
		s := liveSession()
		s.Verified = false
		tok, err := c.Issue(s)
		require.NoError(t, err)
		_, err = c.Open(tok)
		assert.ErrorIs(t, err, core.ErrNoSession)
	})

	t.Run("garbage inputs", func(t *testing.T) {
		for _, tok := range []string{"", "!!!", "AAAA", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
			_, err := c.Open(tok)
			assert.ErrorIs(t, err, core.ErrNoSession)
		}
	})
}
