// Package memory implements store.Store in process memory. Writers are
// serialized; a transaction works on a private copy that replaces the shared
// state on commit, so readers never observe a partial transaction. Used by
// tests and by the server when DATABASE_URL is unset.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	auditdomain "taskmgr/backend/internal/audit/domain"
	auditrepo "taskmgr/backend/internal/audit/repository"
	identitydomain "taskmgr/backend/internal/identity/domain"
	identityrepo "taskmgr/backend/internal/identity/repository"
	otpdomain "taskmgr/backend/internal/otp/domain"
	otprepo "taskmgr/backend/internal/otp/repository"
	"taskmgr/backend/internal/store"
	userdomain "taskmgr/backend/internal/user/domain"
	userrepo "taskmgr/backend/internal/user/repository"
)

type data struct {
	challenges []otpdomain.Challenge // insertion order
	users      map[string]userdomain.User
	identities map[string]identitydomain.Identity
	audit      []auditdomain.AuditLog
}

func (d *data) clone() *data {
	return &data{
		challenges: slices.Clone(d.challenges),
		users:      maps.Clone(d.users),
		identities: maps.Clone(d.identities),
		audit:      slices.Clone(d.audit),
	}
}

// access abstracts how repositories reach the data: through the shared,
// locked state or through a transaction's private copy.
type access interface {
	read(fn func(d *data))
	write(fn func(d *data) error) error
}

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	writeMu sync.Mutex   // serializes writers and transactions
	mu      sync.RWMutex // guards cur
	cur     *data
}

// New returns an empty Store.
func New() *Store {
	return &Store{cur: &data{
		users:      map[string]userdomain.User{},
		identities: map[string]identitydomain.Identity{},
	}}
}

func (s *Store) read(fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.cur)
}

func (s *Store) write(fn func(d *data) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cur)
}

func (s *Store) Challenges() otprepo.Repository      { return challengeRepo{a: s} }
func (s *Store) Users() userrepo.Repository          { return userRepo{a: s} }
func (s *Store) Identities() identityrepo.Repository { return identityRepo{a: s} }
func (s *Store) AuditLogs() auditrepo.Repository     { return auditRepo{a: s} }

// WithTx runs fn against a private copy of the state. Only one transaction or
// writer runs at a time, which gives every LatestPendingForUpdate caller an
// exclusive view until fn returns.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	t := &tx{d: s.cur.clone()}
	s.mu.RUnlock()

	if err := fn(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = t.d
	s.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close() error { return nil }

type tx struct {
	d *data
}

func (t *tx) read(fn func(d *data))              { fn(t.d) }
func (t *tx) write(fn func(d *data) error) error { return fn(t.d) }

func (t *tx) Challenges() otprepo.Repository      { return challengeRepo{a: t} }
func (t *tx) Users() userrepo.Repository          { return userRepo{a: t} }
func (t *tx) Identities() identityrepo.Repository { return identityRepo{a: t} }
func (t *tx) AuditLogs() auditrepo.Repository     { return auditRepo{a: t} }

var _ store.Store = (*Store)(nil)
