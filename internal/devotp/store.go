// Package devotp keeps the last plaintext code per email and purpose in memory so
// local clients can fetch it through DevService/GetOTP. Only wired when
// OTP_RETURN_TO_CLIENT is enabled outside production.
package devotp

import (
	"context"
	"strings"
	"sync"
	"time"

	"taskmgr/backend/internal/otp/domain"
)

// Store holds plain codes for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for (email, purpose) until expiresAt, replacing any previous code.
	Put(ctx context.Context, email string, purpose domain.Purpose, code string, expiresAt time.Time)
	// Get returns the code for (email, purpose) if present and not expired.
	Get(ctx context.Context, email string, purpose domain.Purpose) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

func key(email string, purpose domain.Purpose) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + string(purpose)
}

// Put stores code for (email, purpose) until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, email string, purpose domain.Purpose, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(email, purpose)] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for (email, purpose) if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, email string, purpose domain.Purpose) (string, bool) {
	k := key(email, purpose)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	now := s.nowF()
	if !e.expiresAt.After(now) {
		s.mu.Lock()
		// A Put may have replaced the entry since the read lock was released.
		if cur, ok := s.m[k]; ok && !cur.expiresAt.After(now) {
			delete(s.m, k)
		}
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
