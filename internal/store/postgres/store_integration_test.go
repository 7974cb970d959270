package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"taskmgr/backend/internal/db"
	"taskmgr/backend/internal/db/migrate"
	"taskmgr/backend/internal/otp/domain"
	otprepo "taskmgr/backend/internal/otp/repository"
	"taskmgr/backend/internal/store"
)

// lockNotAvailable is the SQLSTATE raised when lock_timeout expires.
const lockNotAvailable = "55P03"

// startPostgres runs a throwaway Postgres container with the schema applied.
// Skipped with -short or when no container provider is reachable.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "taskmgr",
				"POSTGRES_PASSWORD": "taskmgr",
				"POSTGRES_DB":       "taskmgr",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://taskmgr:taskmgr@%s:%s/taskmgr?sslmode=disable", host, port.Port())
	require.NoError(t, migrate.Run(dsn, "up"))
	return dsn
}

func openStore(t *testing.T, dsn string, lockTimeout time.Duration) *Store {
	t.Helper()
	conn, err := db.Open(dsn)
	require.NoError(t, err)
	st := New(conn, lockTimeout)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedChallenge(t *testing.T, st *Store, id, email string, now time.Time) {
	t.Helper()
	require.NoError(t, st.Challenges().Create(context.Background(), &domain.Challenge{
		ID:          id,
		Email:       email,
		Purpose:     domain.PurposeLogin,
		CodeDigest:  "digest-" + id,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
		MaxAttempts: 5,
	}))
}

func TestPostgres_LockedChallenge(t *testing.T) {
	dsn := startPostgres(t)
	st := openStore(t, dsn, 300*time.Millisecond)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("lock wait is bounded by lock_timeout", func(t *testing.T) {
		seedChallenge(t, st, "lock-1", "lock@example.com", now)

		locked := make(chan struct{})
		release := make(chan struct{})
		holderErr := make(chan error, 1)
		go func() {
			holderErr <- st.WithTx(ctx, func(tx store.Repos) error {
				c, err := tx.Challenges().LatestPendingForUpdate(ctx, "lock@example.com", domain.PurposeLogin, now)
				if err != nil {
					return err
				}
				close(locked)
				<-release
				c.Consume(now)
				return tx.Challenges().UpdateState(ctx, c)
			})
		}()
		<-locked

		err := st.WithTx(ctx, func(tx store.Repos) error {
			_, err := tx.Challenges().LatestPendingForUpdate(ctx, "lock@example.com", domain.PurposeLogin, now)
			return err
		})
		var pgErr *pgconn.PgError
		require.True(t, errors.As(err, &pgErr), "want lock timeout, got %v", err)
		assert.Equal(t, lockNotAvailable, pgErr.Code)

		close(release)
		require.NoError(t, <-holderErr)

		err = st.WithTx(ctx, func(tx store.Repos) error {
			c, err := tx.Challenges().LatestPendingForUpdate(ctx, "lock@example.com", domain.PurposeLogin, now)
			assert.Nil(t, c, "a consumed challenge is no longer pending")
			return err
		})
		require.NoError(t, err)
	})

	t.Run("update is guarded by consumed_at", func(t *testing.T) {
		seedChallenge(t, st, "guard-1", "guard@example.com", now)
		c, err := st.Challenges().LatestPendingForUpdate(ctx, "guard@example.com", domain.PurposeLogin, now)
		require.NoError(t, err)
		require.NotNil(t, c)

		stale := *c
		c.Consume(now)
		require.NoError(t, st.Challenges().UpdateState(ctx, c))

		stale.Attempts = 1
		assert.ErrorIs(t, st.Challenges().UpdateState(ctx, &stale), otprepo.ErrAlreadyConsumed)
	})
}

func TestPostgres_ConcurrentConsumptionIsExactlyOnce(t *testing.T) {
	dsn := startPostgres(t)
	st := openStore(t, dsn, 5*time.Second)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	seedChallenge(t, st, "race-1", "race@example.com", now)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.WithTx(ctx, func(tx store.Repos) error {
				c, err := tx.Challenges().LatestPendingForUpdate(ctx, "race@example.com", domain.PurposeLogin, now)
				if err != nil || c == nil {
					return err
				}
				c.Consume(now)
				if err := tx.Challenges().UpdateState(ctx, c); err != nil {
					return err
				}
				wins.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
