// Package handler implements the dev-only gRPC DevService (GetOTP).
package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	devv1 "taskmgr/backend/api/dev/v1"
	"taskmgr/backend/api/rpc"
	"taskmgr/backend/internal/devotp"
	"taskmgr/backend/internal/otp/domain"
)

const devOTPNote = "DEV MODE ONLY"

// Server implements DevService. Only registered when dev OTP is enabled and not production.
type Server struct {
	devv1.UnimplementedDevServiceServer
	store devotp.Store
}

// NewServer returns a DevService server that reads codes from the given store.
func NewServer(store devotp.Store) *Server {
	return &Server{store: store}
}

// GetOTP returns the last plain code issued for {email, purpose}. Returns NotFound if missing or expired.
func (s *Server) GetOTP(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "method GetOTP not implemented")
	}
	email := strings.TrimSpace(rpc.String(req, "email"))
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "email is required")
	}
	purpose, ok := domain.ParsePurpose(rpc.String(req, "purpose"))
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "purpose must be one of VERIFY_EMAIL, LOGIN, RESET_PASSWORD")
	}
	code, ok := s.store.Get(ctx, email, purpose)
	if !ok {
		return nil, status.Error(codes.NotFound, "OTP not found or expired")
	}
	return rpc.Message(map[string]any{
		"otp":  code,
		"note": devOTPNote,
	})
}
