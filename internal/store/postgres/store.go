// Package postgres implements store.Store over database/sql and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	auditrepo "taskmgr/backend/internal/audit/repository"
	"taskmgr/backend/internal/db"
	identityrepo "taskmgr/backend/internal/identity/repository"
	otprepo "taskmgr/backend/internal/otp/repository"
	"taskmgr/backend/internal/store"
	userrepo "taskmgr/backend/internal/user/repository"
)

// Store is a store.Store backed by Postgres.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// New returns a Store over conn. lockTimeout bounds every lock wait inside
// WithTx (SET LOCAL lock_timeout); zero leaves the server default.
func New(conn *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{db: conn, lockTimeout: lockTimeout}
}

func (s *Store) Challenges() otprepo.Repository      { return otprepo.NewPostgresRepository(s.db) }
func (s *Store) Users() userrepo.Repository          { return userrepo.NewPostgresRepository(s.db) }
func (s *Store) Identities() identityrepo.Repository { return identityrepo.NewPostgresRepository(s.db) }
func (s *Store) AuditLogs() auditrepo.Repository     { return auditrepo.NewPostgresRepository(s.db) }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// WithTx executes fn within a READ COMMITTED transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after Commit returns sql.ErrTxDone and is ignored.
	defer func() { _ = tx.Rollback() }()

	if s.lockTimeout > 0 {
		// SET does not accept bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(txRepos{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepos struct {
	tx db.DBTX
}

func (t txRepos) Challenges() otprepo.Repository { return otprepo.NewPostgresRepository(t.tx) }
func (t txRepos) Users() userrepo.Repository     { return userrepo.NewPostgresRepository(t.tx) }
func (t txRepos) Identities() identityrepo.Repository {
	return identityrepo.NewPostgresRepository(t.tx)
}
func (t txRepos) AuditLogs() auditrepo.Repository { return auditrepo.NewPostgresRepository(t.tx) }

var _ store.Store = (*Store)(nil)
