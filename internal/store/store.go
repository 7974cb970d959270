// Package store groups the repositories behind a single handle so multi-step
// operations (verify, reset, register) can run atomically.
package store

import (
	"context"

	auditrepo "taskmgr/backend/internal/audit/repository"
	identityrepo "taskmgr/backend/internal/identity/repository"
	otprepo "taskmgr/backend/internal/otp/repository"
	userrepo "taskmgr/backend/internal/user/repository"
)

// Repos exposes the repositories. Outside a transaction each call is its own
// statement; inside WithTx all calls share the transaction.
type Repos interface {
	Challenges() otprepo.Repository
	Users() userrepo.Repository
	Identities() identityrepo.Repository
	AuditLogs() auditrepo.Repository
}

// Store is the root data access interface implemented by the postgres and memory drivers.
type Store interface {
	Repos

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed. Row locks taken by
	// Challenges().LatestPendingForUpdate are held until fn returns.
	WithTx(ctx context.Context, fn func(tx Repos) error) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
