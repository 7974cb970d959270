package server

import (
	"log/slog"

	"google.golang.org/grpc"

	auditv1 "taskmgr/backend/api/audit/v1"
	authv1 "taskmgr/backend/api/auth/v1"
	devv1 "taskmgr/backend/api/dev/v1"
	healthv1 "taskmgr/backend/api/health/v1"
	otpv1 "taskmgr/backend/api/otp/v1"
	userv1 "taskmgr/backend/api/user/v1"

	audithandler "taskmgr/backend/internal/audit/handler"
	auditrepo "taskmgr/backend/internal/audit/repository"
	"taskmgr/backend/internal/devotp"
	devotphandler "taskmgr/backend/internal/devotp/handler"
	healthhandler "taskmgr/backend/internal/health/handler"
	identityhandler "taskmgr/backend/internal/identity/handler"
	identityservice "taskmgr/backend/internal/identity/service"
	otphandler "taskmgr/backend/internal/otp/handler"
	"taskmgr/backend/internal/platform/rbac"
	"taskmgr/backend/internal/server/interceptors"
	"taskmgr/backend/internal/telemetry"
	userhandler "taskmgr/backend/internal/user/handler"
	userrepo "taskmgr/backend/internal/user/repository"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// OTP is the verification engine behind OTPService. If nil, OTP RPCs return Unimplemented.
	OTP otphandler.Engine
	// Auth is the auth service for Register/Login/Me. If nil, auth RPCs return Unimplemented.
	Auth *identityservice.AuthService
	// UserRepo backs UserService and the root admin check of AuditService. If nil, user RPCs return Unimplemented.
	UserRepo userrepo.Repository
	// AuditRepo is the audit log repository for AuditService. If nil, ListAuditLogs returns Unimplemented.
	AuditRepo auditrepo.Repository
	// HealthPinger is used by HealthService for readiness (e.g. the store). If nil, HealthCheck skips the ping.
	HealthPinger healthhandler.Pinger
	// DevOTPStore backs the dev-only DevService (GetOTP). If nil, DevService is not registered.
	// Set only when dev OTP is enabled and not production.
	DevOTPStore devotp.Store
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - OTPService    → internal/otp/handler
//   - AuthService   → internal/identity/handler
//   - UserService   → internal/user/handler
//   - AuditService  → internal/audit/handler
//   - HealthService → internal/health/handler
//   - DevService    → internal/devotp/handler (dev only)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	otpv1.RegisterOTPServiceServer(s, otphandler.NewServer(deps.OTP))
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	userv1.RegisterUserServiceServer(s, userhandler.NewServer(deps.UserRepo))
	var users rbac.UserGetter
	if deps.UserRepo != nil {
		users = deps.UserRepo
	}
	auditv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditRepo, users))
	healthv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger))
	if deps.DevOTPStore != nil {
		devv1.RegisterDevServiceServer(s, devotphandler.NewServer(deps.DevOTPStore))
	}
}

// PublicMethods returns the full method names callable without a session token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		otpv1.OTPService_RequestChallenge_FullMethodName:  true,
		otpv1.OTPService_VerifyChallenge_FullMethodName:   true,
		otpv1.OTPService_CompleteReset_FullMethodName:     true,
		authv1.AuthService_Register_FullMethodName:        true,
		authv1.AuthService_Login_FullMethodName:           true,
		healthv1.HealthService_HealthCheck_FullMethodName: true,
		devv1.DevService_GetOTP_FullMethodName:            true,
	}
}

// ThrottledMethods returns the unauthenticated credential-bearing methods that the
// per-IP request throttle applies to.
func ThrottledMethods() map[string]bool {
	return map[string]bool{
		otpv1.OTPService_RequestChallenge_FullMethodName: true,
		otpv1.OTPService_VerifyChallenge_FullMethodName:  true,
		otpv1.OTPService_CompleteReset_FullMethodName:    true,
		authv1.AuthService_Register_FullMethodName:       true,
		authv1.AuthService_Login_FullMethodName:          true,
	}
}

// InterceptorConfig configures the unary interceptor chain.
type InterceptorConfig struct {
	Logger *slog.Logger
	// Tokens validates bearer session tokens. Ignored when TrustForwardedIdentity is set.
	Tokens interceptors.TokenValidator
	// TrustForwardedIdentity trusts x-user-* metadata from an edge that already verified the token.
	TrustForwardedIdentity bool
	// AuditRepo records authenticated RPCs. May be nil.
	AuditRepo auditrepo.Repository
	// Telemetry receives grpc_request events. May be nil.
	Telemetry telemetry.EventEmitter
	// RateLimitPerMinute and RateLimitBurst bound ThrottledMethods per client IP; <= 0 disables.
	RateLimitPerMinute int
	RateLimitBurst     int
}

// UnaryInterceptors returns the server chain: logging, per-IP throttle, identity, audit, telemetry.
func UnaryInterceptors(cfg InterceptorConfig) []grpc.UnaryServerInterceptor {
	public := PublicMethods()
	identity := interceptors.ForwardedIdentityUnary(public)
	if !cfg.TrustForwardedIdentity {
		identity = interceptors.AuthUnary(cfg.Tokens, public)
	}
	skip := map[string]bool{
		healthv1.HealthService_HealthCheck_FullMethodName: true,
		auditv1.AuditService_ListAuditLogs_FullMethodName: true,
	}
	return []grpc.UnaryServerInterceptor{
		interceptors.LoggingUnary(cfg.Logger),
		interceptors.RateLimitUnary(cfg.RateLimitPerMinute, cfg.RateLimitBurst, ThrottledMethods()),
		identity,
		interceptors.AuditUnary(cfg.AuditRepo, skip),
		interceptors.TelemetryUnary(cfg.Telemetry, map[string]bool{
			healthv1.HealthService_HealthCheck_FullMethodName: true,
		}),
	}
}
