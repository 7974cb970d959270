package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/server/interceptors"
)

// RequireUser ensures the caller is authenticated.
// Returns the caller identity on success; returns a gRPC Unauthenticated error otherwise.
func RequireUser(ctx context.Context) (security.Identity, error) {
	id, ok := interceptors.GetIdentity(ctx)
	if !ok {
		return security.Identity{}, status.Error(codes.Unauthenticated, "user context required")
	}
	return id, nil
}
