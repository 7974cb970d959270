package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	authv1 "taskmgr/backend/api/auth/v1"
	"taskmgr/backend/api/rpc"
	"taskmgr/backend/internal/identity/service"
	"taskmgr/backend/internal/platform/rbac"
	userhandler "taskmgr/backend/internal/user/handler"
)

// AuthServer implements AuthService for password registration, login and the caller's profile.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth *service.AuthService
}

// NewAuthServer returns a new Auth gRPC server. auth may be nil; then all RPCs return Unimplemented.
func NewAuthServer(auth *service.AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// Register creates an account and returns {accessToken, expiresAt, user}.
func (s *AuthServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	res, err := s.auth.Register(ctx,
		rpc.String(req, "name"),
		rpc.String(req, "email"),
		rpc.String(req, "password"),
		rpc.String(req, "rootAdminKey"),
	)
	if err != nil {
		return nil, authErrorToStatus(ctx, err)
	}
	return authResultMessage(res)
}

// Login authenticates with {email, password} and returns {accessToken, expiresAt, user}.
func (s *AuthServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	res, err := s.auth.Login(ctx, rpc.String(req, "email"), rpc.String(req, "password"))
	if err != nil {
		return nil, authErrorToStatus(ctx, err)
	}
	return authResultMessage(res)
}

// Me returns the authenticated caller's account as {user}.
func (s *AuthServer) Me(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Me not implemented")
	}
	id, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.auth.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, authErrorToStatus(ctx, err)
	}
	return rpc.Message(map[string]any{"user": userhandler.UserFields(u)})
}

func authResultMessage(res *service.AuthResult) (*structpb.Struct, error) {
	return rpc.Message(map[string]any{
		"accessToken": res.AccessToken,
		"expiresAt":   res.ExpiresAt.UTC().Format(time.RFC3339),
		"user":        userhandler.UserFields(res.User),
	})
}

func authErrorToStatus(ctx context.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Message)
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, service.ErrInvalidRootAdminKey):
		return status.Error(codes.PermissionDenied, "invalid root admin key")
	case errors.Is(err, service.ErrRootAdminExists):
		return status.Error(codes.FailedPrecondition, "root admin already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, service.ErrUserNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		slog.ErrorContext(ctx, "auth: request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
