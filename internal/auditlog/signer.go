// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package auditlog

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SecretEnvVar is the environment variable carrying the HMAC key for
// integrity mode (spec.md §4.6).
const SecretEnvVar = "NETSHIELD_LOG_SECRET"

// Signer computes HMAC-SHA-256 signatures over audit records when
// integrity mode is enabled. A zero-value Signer (or one built from an
// empty key) is disabled, and Sign on it returns the empty string.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer from key. An empty key disables signing.
func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

// Enabled reports whether this signer holds a non-empty key.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.key) > 0
}

// sigLen is the number of hex characters of the full HMAC-SHA-256 digest
// that are stored and compared (spec.md §6/§8: the stored signature is a
// 16-char prefix of the digest, not the full 64-char hex string).
const sigLen = 16

// Sign returns the first 16 hex characters of the HMAC-SHA-256 of body
// keyed by s.key. Callers must check Enabled first; Sign on a disabled
// signer returns the empty string.
func (s *Signer) Sign(body []byte) string {
	if !s.Enabled() {
		return ""
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}

// Verify reports whether sig is the correct 16-char signature prefix of
// body under s.key, using constant-time comparison.
func (s *Signer) Verify(body []byte, sig string) bool {
	if !s.Enabled() {
		return sig == ""
	}
	if len(sig) != sigLen {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	got := mac.Sum(nil)[:len(want)]
	return hmac.Equal(want, got)
}
