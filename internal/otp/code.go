// Package otp generates one-time codes and computes their keyed digests.
// Plaintext codes are never stored; only the digest is persisted on a challenge.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// CodeDigits is the length of a generated code.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random 6-digit numeric code, zero-padded (000000–999999).
// Uses crypto/rand for randomness.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}

// Digester computes the stored digest of a code. The digest binds the code to
// the subject email and purpose and is keyed by a deployment secret, so a
// leaked table cannot be brute-forced without the secret.
type Digester struct {
	secret []byte
}

// NewDigester returns a Digester keyed by secret. secret must not be empty.
func NewDigester(secret string) (*Digester, error) {
	if secret == "" {
		return nil, errors.New("otp: digest secret must not be empty")
	}
	return &Digester{secret: []byte(secret)}, nil
}

// Digest returns the hex-encoded HMAC-SHA256 of "email:purpose:code".
// email must already be normalized.
func (d *Digester) Digest(email, purpose, code string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(email))
	mac.Write([]byte{':'})
	mac.Write([]byte(purpose))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// DigestEqual reports whether two digests are equal. Lengths are compared
// first; equal-length inputs are compared in constant time.
func DigestEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
