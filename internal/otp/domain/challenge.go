package domain

import (
	"strings"
	"time"
)

// Purpose is the intended use of a challenge. It partitions rate limits and post-match effects.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "VERIFY_EMAIL"
	PurposeLogin         Purpose = "LOGIN"
	PurposeResetPassword Purpose = "RESET_PASSWORD"
)

// ParsePurpose returns the Purpose named by s (case-insensitive) and whether it is known.
func ParsePurpose(s string) (Purpose, bool) {
	p := Purpose(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerifyEmail, PurposeLogin, PurposeResetPassword:
		return true
	}
	return false
}

func (p Purpose) String() string { return string(p) }

// Challenge is one issued code (stored in email_otps table). The plaintext code
// is never stored; CodeDigest is the keyed digest of it.
//
// A challenge is pending until ConsumedAt is set, which is terminal. Expiry is
// derived from ExpiresAt and never stored. Attempts never exceeds MaxAttempts.
type Challenge struct {
	ID          string
	Email       string
	Purpose     Purpose
	UserID      string // empty when the email had no account at issuance
	CodeDigest  string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
	Attempts    int
	MaxAttempts int
	OriginIP    string // empty when unknown
}

// IsConsumed reports whether the challenge reached its terminal state.
func (c *Challenge) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// IsExpired reports whether now is past ExpiresAt.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsPending reports whether the challenge can still be verified at now.
func (c *Challenge) IsPending(now time.Time) bool {
	return !c.IsConsumed() && !c.IsExpired(now) && c.Attempts < c.MaxAttempts
}

// AttemptsExhausted reports whether no further submissions are allowed.
func (c *Challenge) AttemptsExhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// Consume marks the challenge consumed at now. Consuming an already consumed
// challenge keeps the original timestamp.
func (c *Challenge) Consume(now time.Time) {
	if c.ConsumedAt != nil {
		return
	}
	t := now
	c.ConsumedAt = &t
}

// RecordFailedAttempt increments Attempts (capped at MaxAttempts) and consumes
// the challenge when the cap is reached. It reports whether the challenge is now locked out.
func (c *Challenge) RecordFailedAttempt(now time.Time) bool {
	if c.Attempts < c.MaxAttempts {
		c.Attempts++
	}
	if c.Attempts >= c.MaxAttempts {
		c.Consume(now)
		return true
	}
	return false
}
