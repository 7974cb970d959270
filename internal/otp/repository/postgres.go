package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskmgr/backend/internal/db"
	"taskmgr/backend/internal/otp/domain"
)

// ErrAlreadyConsumed is returned by UpdateState when the row was consumed by another writer.
var ErrAlreadyConsumed = errors.New("otp: challenge already consumed")

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a challenge repository over db. Pass a *sql.Tx
// for LatestPendingForUpdate to hold its row lock across the verify sequence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const challengeColumns = `id, email, purpose, user_id, code_digest, created_at, expires_at, consumed_at, attempts, max_attempts, request_ip`

// Create persists the challenge. The challenge must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_otps (`+challengeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Email, string(c.Purpose), nullString(c.UserID), c.CodeDigest,
		c.CreatedAt, c.ExpiresAt, nullTime(c.ConsumedAt), c.Attempts, c.MaxAttempts, nullString(c.OriginIP),
	)
	return err
}

// LatestPendingForUpdate selects with FOR UPDATE. A concurrent caller blocks on
// the row and, after the holder commits, re-evaluates the predicate against the
// committed row, so a consumed challenge is never returned twice.
func (r *PostgresRepository) LatestPendingForUpdate(ctx context.Context, email string, purpose domain.Purpose, now time.Time) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+`
		 FROM email_otps
		 WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at >= $3
		 ORDER BY created_at DESC
		 LIMIT 1
		 FOR UPDATE`,
		email, string(purpose), now,
	)
	c, err := scanChallenge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// UpdateState writes attempts and consumed_at, guarded by consumed_at IS NULL.
func (r *PostgresRepository) UpdateState(ctx context.Context, c *domain.Challenge) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE email_otps SET attempts = $2, consumed_at = $3
		 WHERE id = $1 AND consumed_at IS NULL`,
		c.ID, c.Attempts, nullTime(c.ConsumedAt),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

// CountByEmailPurposeSince counts challenges for (email, purpose) created after since.
func (r *PostgresRepository) CountByEmailPurposeSince(ctx context.Context, email string, purpose domain.Purpose, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_otps WHERE email = $1 AND purpose = $2 AND created_at > $3`, email, string(purpose), since)
}

// CountByEmailSince counts challenges for email across purposes created after since.
func (r *PostgresRepository) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_otps WHERE email = $1 AND created_at > $2`, email, since)
}

// CountByOriginIPSince counts challenges requested from ip created after since.
func (r *PostgresRepository) CountByOriginIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM email_otps WHERE request_ip = $1 AND created_at > $2`, ip, since)
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanChallenge(row *sql.Row) (*domain.Challenge, error) {
	var (
		c                domain.Challenge
		purpose          string
		userID, originIP sql.NullString
		consumedAt       sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Email, &purpose, &userID, &c.CodeDigest,
		&c.CreatedAt, &c.ExpiresAt, &consumedAt, &c.Attempts, &c.MaxAttempts, &originIP)
	if err != nil {
		return nil, err
	}
	c.Purpose = domain.Purpose(purpose)
	c.UserID = userID.String
	c.OriginIP = originIP.String
	if consumedAt.Valid {
		t := consumedAt.Time
		c.ConsumedAt = &t
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
