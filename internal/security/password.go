package security

import (
	"errors"
	"strings"
)

// MinPasswordBytes is the shortest password accepted at registration and reset.
const MinPasswordBytes = 8

var (
	ErrPasswordRequired = errors.New("Password is required")
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("Password must be at most 72 bytes")
)

// ValidatePassword checks the password length bounds. Blank passwords are rejected.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}
	if len(password) < MinPasswordBytes {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
