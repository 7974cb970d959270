package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/user/domain"
)

// UserGetter loads a user by id. Used by RequireRootAdmin to confirm the token claim.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// RequireRootAdmin ensures the caller is authenticated, carries the root admin claim, and
// that the account still exists with the root admin flag.
// Returns the caller identity on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireRootAdmin(ctx context.Context, users UserGetter) (security.Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return security.Identity{}, err
	}
	if !id.RootAdmin {
		return security.Identity{}, status.Error(codes.PermissionDenied, "root admin required")
	}
	u, err := users.GetByID(ctx, id.UserID)
	if err != nil {
		return security.Identity{}, status.Error(codes.Internal, "failed to resolve user")
	}
	if u == nil || !u.RootAdmin {
		return security.Identity{}, status.Error(codes.PermissionDenied, "root admin required")
	}
	return id, nil
}
