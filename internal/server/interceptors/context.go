package interceptors

import (
	"context"

	"taskmgr/backend/internal/security"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the caller's verified identity.
// Handlers read it via GetIdentity or GetUserID.
func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from context and true if set with a non-empty user id.
func GetIdentity(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(identityKey).(security.Identity)
	if !ok || id.UserID == "" {
		return security.Identity{}, false
	}
	return id, true
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	return id.UserID, ok
}

// IsRootAdmin reports whether the caller is the root admin.
func IsRootAdmin(ctx context.Context) bool {
	id, ok := GetIdentity(ctx)
	return ok && id.RootAdmin
}
