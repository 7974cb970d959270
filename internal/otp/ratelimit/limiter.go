// Package ratelimit gates OTP issuance on three durable counting windows.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskmgr/backend/internal/otp/domain"
)

const (
	// ShortWindow is the window for the per email+purpose and per origin IP limits.
	ShortWindow = 10 * time.Minute
	// DayWindow is the window for the per email limit across purposes.
	DayWindow = 24 * time.Hour
)

// Limits are the issuance bounds. Each must be positive; a request is allowed
// while the existing count in the window is strictly below the bound.
type Limits struct {
	PerIdentityPurpose10Min int
	PerIdentityDay          int
	PerOriginIP10Min        int
}

// DefaultLimits returns 3 per email+purpose per 10 minutes, 10 per email per
// day and 15 per origin IP per 10 minutes.
func DefaultLimits() Limits {
	return Limits{PerIdentityPurpose10Min: 3, PerIdentityDay: 10, PerOriginIP10Min: 15}
}

// Validate reports the first non-positive bound.
func (l Limits) Validate() error {
	if l.PerIdentityPurpose10Min <= 0 || l.PerIdentityDay <= 0 || l.PerOriginIP10Min <= 0 {
		return errors.New("ratelimit: all limits must be positive")
	}
	return nil
}

// Counter answers the three window queries. The challenge repository implements it.
type Counter interface {
	CountByEmailPurposeSince(ctx context.Context, email string, purpose domain.Purpose, since time.Time) (int, error)
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error)
	CountByOriginIPSince(ctx context.Context, ip string, since time.Time) (int, error)
}

// Window identifies which bound rejected a request.
type Window string

const (
	WindowIdentityPurpose Window = "identity_purpose_10m"
	WindowIdentityDay     Window = "identity_day"
	WindowOriginIP        Window = "origin_ip_10m"
)

// ExceededError is returned by Check when a window is full.
type ExceededError struct {
	Window Window
	Limit  int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("ratelimit: %s limit of %d reached", e.Window, e.Limit)
}

// Limiter evaluates Limits against a Counter. It only reads; it never writes.
type Limiter struct {
	limits Limits
}

// New returns a Limiter for limits.
func New(limits Limits) (*Limiter, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{limits: limits}, nil
}

// Limits returns the configured bounds.
func (l *Limiter) Limits() Limits { return l.limits }

// Check evaluates, in order, the email+purpose window, the email day window
// and, when originIP is non-empty, the origin IP window. It returns an
// *ExceededError for the first full window, or a wrapped counter error.
func (l *Limiter) Check(ctx context.Context, c Counter, email string, purpose domain.Purpose, originIP string, now time.Time) error {
	n, err := c.CountByEmailPurposeSince(ctx, email, purpose, now.Add(-ShortWindow))
	if err != nil {
		return fmt.Errorf("count by email and purpose: %w", err)
	}
	if n >= l.limits.PerIdentityPurpose10Min {
		return &ExceededError{Window: WindowIdentityPurpose, Limit: l.limits.PerIdentityPurpose10Min}
	}

	n, err = c.CountByEmailSince(ctx, email, now.Add(-DayWindow))
	if err != nil {
		return fmt.Errorf("count by email: %w", err)
	}
	if n >= l.limits.PerIdentityDay {
		return &ExceededError{Window: WindowIdentityDay, Limit: l.limits.PerIdentityDay}
	}

	if originIP == "" {
		return nil
	}
	n, err = c.CountByOriginIPSince(ctx, originIP, now.Add(-ShortWindow))
	if err != nil {
		return fmt.Errorf("count by origin ip: %w", err)
	}
	if n >= l.limits.PerOriginIP10Min {
		return &ExceededError{Window: WindowOriginIP, Limit: l.limits.PerOriginIP10Min}
	}
	return nil
}
