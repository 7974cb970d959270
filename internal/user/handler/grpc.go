package handler

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
	userv1 "taskmgr/backend/api/user/v1"
	"taskmgr/backend/internal/platform/rbac"
	"taskmgr/backend/internal/user/domain"
	userrepo "taskmgr/backend/internal/user/repository"
)

// Server implements UserService for authenticated user reads.
type Server struct {
	userv1.UnimplementedUserServiceServer
	userRepo userrepo.Repository
}

// NewServer returns a new User gRPC server. userRepo may be nil; then all RPCs return Unimplemented.
func NewServer(userRepo userrepo.Repository) *Server {
	return &Server{userRepo: userRepo}
}

// GetUser returns a user by ID. Caller must be authenticated.
func (s *Server) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
	}
	if _, err := rbac.RequireUser(ctx); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(rpc.String(req, "userId"))
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to look up user")
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return rpc.Message(map[string]any{"user": UserFields(u)})
}

// LookupUser returns a user by email (case-insensitive). Caller must be authenticated.
func (s *Server) LookupUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method LookupUser not implemented")
	}
	if _, err := rbac.RequireUser(ctx); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(rpc.String(req, "email")))
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "email required")
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to look up user")
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return rpc.Message(map[string]any{"user": UserFields(u)})
}

// UserFields is the wire view of a user shared by UserService and AuthService.
func UserFields(u *domain.User) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"rootAdmin":     u.RootAdmin,
		"emailVerified": u.EmailVerified,
		"createdAt":     u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
