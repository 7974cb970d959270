package repository

import (
	"context"

	"taskmgr/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create returns db.ErrConflict when the email is taken or a second root admin is created.
	Create(ctx context.Context, u *domain.User) error
	// HasRootAdmin reports whether a root admin already exists.
	HasRootAdmin(ctx context.Context) (bool, error)
	// SetEmailVerified marks the user's email verified. No-op if the user does not exist.
	SetEmailVerified(ctx context.Context, userID string) error
}
