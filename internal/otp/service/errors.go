package service

import (
	"errors"

	"taskmgr/backend/internal/otp/ratelimit"
)

// Kind is the stable, machine-readable category of an engine failure.
type Kind string

const (
	KindRateLimited          Kind = "rate_limited"
	KindInvalidOrExpiredCode Kind = "invalid_or_expired_code"
	KindLockedOut            Kind = "locked_out"
	KindAccountNotFound      Kind = "account_not_found"
	KindValidation           Kind = "validation_error"
)

// Error is a terminal engine failure returned to the caller. Message is safe
// to show to users; Err, when set, is the underlying cause and is not exposed.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrLockedOut) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrRateLimited          = &Error{Kind: KindRateLimited, Message: "Too many OTP requests. Try again later."}
	ErrInvalidOrExpiredCode = &Error{Kind: KindInvalidOrExpiredCode, Message: "Invalid or expired code"}
	ErrLockedOut            = &Error{Kind: KindLockedOut, Message: "Too many attempts. Request a new code."}
	ErrAccountNotFound      = &Error{Kind: KindAccountNotFound, Message: "User not found"}
	ErrValidation           = &Error{Kind: KindValidation, Message: "Invalid request"}
)

// KindOf returns the Kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func rateLimited(exceeded *ratelimit.ExceededError) *Error {
	msg := "Too many OTP requests. Try again later."
	if exceeded.Window == ratelimit.WindowIdentityDay {
		msg = "Too many OTP requests today. Try again later."
	}
	return &Error{Kind: KindRateLimited, Message: msg, Err: exceeded}
}

func invalidCode() *Error {
	return &Error{Kind: KindInvalidOrExpiredCode, Message: ErrInvalidOrExpiredCode.Message}
}

func lockedOut() *Error {
	return &Error{Kind: KindLockedOut, Message: ErrLockedOut.Message}
}

func accountNotFound(msg string) *Error {
	return &Error{Kind: KindAccountNotFound, Message: msg}
}

func validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
