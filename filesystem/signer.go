package filesystem

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrURLExpired is returned when a signed URL's expiry has passed.
	ErrURLExpired = errors.New("url expired")
	// ErrBadSignature is returned when a signature does not match.
	ErrBadSignature = errors.New("invalid signature")
)

// URLSigner signs and verifies download URLs with HMAC-SHA256 over the
// storage key and expiry timestamp. The same shared secret signs and
// verifies; whoever holds it can mint URLs for any key.
type URLSigner struct {
	secret []byte
}

// NewURLSigner creates a URLSigner with the given shared secret.
func NewURLSigner(secret []byte) *URLSigner {
	return &URLSigner{secret: secret}
}

// Sign returns the hex signature for key valid until expiresAt (unix seconds).
func (s *URLSigner) Sign(key string, expiresAt int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(expiresAt, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature for key and expiresAt. Signature validity is
// checked before expiry so a tampered-but-unexpired URL is rejected as a
// signature mismatch, and comparison is constant-time.
func (s *URLSigner) Verify(key string, expiresAt int64, signature string) error {
	expected := s.Sign(key, expiresAt)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("verify %q: %w", key, ErrBadSignature)
	}

	if time.Now().Unix() >= expiresAt {
		return fmt.Errorf("verify %q: %w", key, ErrURLExpired)
	}

	return nil
}
