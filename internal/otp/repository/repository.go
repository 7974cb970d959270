package repository

import (
	"context"
	"time"

	"taskmgr/backend/internal/otp/domain"
)

// Repository defines persistence for OTP challenges. Challenges are never deleted;
// consumed and expired rows remain for rate-limit counting and audit.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	// LatestPendingForUpdate returns the most recently created challenge for
	// (email, purpose) that is unconsumed and unexpired at now, or nil. When
	// called inside a transaction the row stays locked until commit.
	LatestPendingForUpdate(ctx context.Context, email string, purpose domain.Purpose, now time.Time) (*domain.Challenge, error)
	// UpdateState persists Attempts and ConsumedAt. A challenge that is already
	// consumed is never modified.
	UpdateState(ctx context.Context, c *domain.Challenge) error

	CountByEmailPurposeSince(ctx context.Context, email string, purpose domain.Purpose, since time.Time) (int, error)
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error)
	CountByOriginIPSince(ctx context.Context, ip string, since time.Time) (int, error)
}
