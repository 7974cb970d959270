package security

import "time"

// testSigningSecret signs tokens in unit tests only. Do not use in production.
const testSigningSecret = "test-signing-secret-do-not-use-in-production"

// NewTestTokenProvider returns a TokenProvider using the fixed test secret and issuer "test-issuer".
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider(testSigningSecret, "test-issuer")
}

// WithClock returns a copy of p that validates expiry against now instead of the wall clock.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	cp := *p
	cp.now = now
	return &cp
}
