package smartdrive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueVerify(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	t.Run("round trip returns subject", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)

		token, err := svc.Issue("alice@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		subject, err := svc.Verify(token)
		assert.NoError(t, err)
		assert.Equal(t, "alice@example.com", subject)
	})

	t.Run("zero ttl falls back to default", func(t *testing.T) {
		svc := NewTokenService(secret, 0)
		assert.Equal(t, DefaultTokenTTL, svc.ttl)
	})

	t.Run("expired token", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)

		issuedAt := time.Now()
		svc.now = func() time.Time { return issuedAt }
		token, err := svc.Issue("alice@example.com")
		require.NoError(t, err)

		svc.now = func() time.Time { return issuedAt.Add(time.Hour + time.Second) }
		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("valid until expiry", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)

		issuedAt := time.Now()
		svc.now = func() time.Time { return issuedAt }
		token, err := svc.Issue("alice@example.com")
		require.NoError(t, err)

		svc.now = func() time.Time { return issuedAt.Add(time.Hour - time.Second) }
		subject, err := svc.Verify(token)
		assert.NoError(t, err)
		assert.Equal(t, "alice@example.com", subject)
	})

	t.Run("tampered signature", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)

		token, err := svc.Issue("alice@example.com")
		require.NoError(t, err)

		tampered := tamperLastChar(token)
		_, err = svc.Verify(tampered)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("token signed with different secret", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)
		other := NewTokenService([]byte("another-secret-another-secret-ab"), time.Hour)

		token, err := other.Issue("mallory@example.com")
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("expired and tampered reports malformed", func(t *testing.T) {
		// Signature is checked before expiry, so a forged expired token
		// must not leak that its claims point at a real expired token.
		svc := NewTokenService(secret, time.Hour)

		issuedAt := time.Now()
		svc.now = func() time.Time { return issuedAt }
		token, err := svc.Issue("alice@example.com")
		require.NoError(t, err)

		svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
		_, err = svc.Verify(tamperLastChar(token))
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)

		for _, tok := range []string{"", "not-a-token", "a.b.c"} {
			_, err := svc.Verify(tok)
			assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
		}
	})

	t.Run("empty subject", func(t *testing.T) {
		svc := NewTokenService(secret, time.Hour)

		token, err := svc.Issue("")
		require.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})
}

// tamperLastChar flips the final signature character of a JWT.
func tamperLastChar(token string) string {
	replacement := "A"
	if strings.HasSuffix(token, "A") {
		replacement = "B"
	}
	return token[:len(token)-1] + replacement
}
