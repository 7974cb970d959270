package domain

import "time"

// Identity is a credential linked to a user. Only the local (password) provider exists today.
type Identity struct {
	ID           string
	UserID       string
	Provider     IdentityProvider
	ProviderID   string // the login email for local identities
	PasswordHash string // bcrypt; empty if not local
	CreatedAt    time.Time
}

type IdentityProvider string

const (
	IdentityProviderLocal IdentityProvider = "local"
)
