// Package notify delivers issued codes to users. Delivery is best-effort: a
// failure never affects the challenge, which is persisted before delivery runs.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskmgr/backend/internal/devotp"
	"taskmgr/backend/internal/otp/domain"
)

// Message is one code to deliver. Code is plaintext and must not be logged.
type Message struct {
	Email     string
	Purpose   domain.Purpose
	Code      string
	ExpiresAt time.Time
}

// Notifier delivers a Message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Subject returns the email subject for purpose.
func Subject(purpose domain.Purpose) string {
	switch purpose {
	case domain.PurposeLogin:
		return "Your login code"
	case domain.PurposeResetPassword:
		return "Your password reset code"
	default:
		return "Your verification code"
	}
}

// Body returns the plain-text email body.
func Body(msg Message, now time.Time) string {
	minutes := int(msg.ExpiresAt.Sub(now).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your code is %s\n\nIt expires in %d minutes. If you did not request it, you can ignore this email.\n", msg.Code, minutes)
}

// Discard drops messages. Used when no transport is configured; it logs that
// delivery was skipped without the code.
type Discard struct {
	Logger *slog.Logger
}

func (d Discard) Notify(ctx context.Context, msg Message) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "notify: no delivery transport configured, code not sent", "purpose", string(msg.Purpose))
	return nil
}

// DevStore keeps the plaintext code in a devotp.Store for DevService/GetOTP.
type DevStore struct {
	Store devotp.Store
}

func (d DevStore) Notify(ctx context.Context, msg Message) error {
	d.Store.Put(ctx, msg.Email, msg.Purpose, msg.Code, msg.ExpiresAt)
	return nil
}
