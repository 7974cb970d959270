package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	otpv1 "taskmgr/backend/api/otp/v1"
	"taskmgr/backend/api/rpc"
	"taskmgr/backend/internal/otp/domain"
	"taskmgr/backend/internal/otp/service"
	"taskmgr/backend/internal/server/interceptors"
)

// Engine is the OTP verification engine. service.Engine implements it.
type Engine interface {
	RequestChallenge(ctx context.Context, email string, purpose domain.Purpose, originIP string) (*service.RequestResult, error)
	VerifyChallenge(ctx context.Context, email string, purpose domain.Purpose, code string) (*service.VerifyResult, error)
	CompleteReset(ctx context.Context, email, code, newPassword string) (*service.ResetResult, error)
}

// Server implements OTPService. All methods are public; the origin IP for
// issuance rate limiting is resolved from the caller.
type Server struct {
	otpv1.UnimplementedOTPServiceServer
	engine Engine
}

// NewServer returns a new OTP gRPC server. engine may be nil; then all RPCs return Unimplemented.
func NewServer(engine Engine) *Server {
	return &Server{engine: engine}
}

// RequestChallenge issues a code for {email, purpose} and returns {expiresInSeconds}.
func (s *Server) RequestChallenge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.engine == nil {
		return nil, status.Error(codes.Unimplemented, "method RequestChallenge not implemented")
	}
	purpose, _ := domain.ParsePurpose(rpc.String(req, "purpose"))
	res, err := s.engine.RequestChallenge(ctx, rpc.String(req, "email"), purpose, interceptors.ClientIP(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return rpc.Message(map[string]any{
		"expiresInSeconds": res.ExpiresInSeconds,
	})
}

// VerifyChallenge submits {email, purpose, code}. A LOGIN match also returns
// {accessToken, expiresAt, userId}.
func (s *Server) VerifyChallenge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.engine == nil {
		return nil, status.Error(codes.Unimplemented, "method VerifyChallenge not implemented")
	}
	purpose, _ := domain.ParsePurpose(rpc.String(req, "purpose"))
	res, err := s.engine.VerifyChallenge(ctx, rpc.String(req, "email"), purpose, rpc.String(req, "code"))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	out := map[string]any{"verified": res.Verified}
	if res.AccessToken != "" {
		out["accessToken"] = res.AccessToken
		out["expiresAt"] = res.TokenExpiresAt.UTC().Format(time.RFC3339)
	}
	if res.UserID != "" {
		out["userId"] = res.UserID
	}
	return rpc.Message(out)
}

// CompleteReset consumes a RESET_PASSWORD code and replaces the password.
func (s *Server) CompleteReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.engine == nil {
		return nil, status.Error(codes.Unimplemented, "method CompleteReset not implemented")
	}
	res, err := s.engine.CompleteReset(ctx, rpc.String(req, "email"), rpc.String(req, "code"), rpc.String(req, "newPassword"))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return rpc.Message(map[string]any{"reset": res.Reset})
}
