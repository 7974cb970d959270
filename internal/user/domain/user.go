package domain

import (
	"errors"
	"time"
)

// User is the core user entity.
type User struct {
	ID            string
	Email         string // normalized lowercase; unique case-insensitively
	Name          string
	RootAdmin     bool // at most one root admin exists system-wide
	EmailVerified bool // set by a successful VERIFY_EMAIL challenge
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
