package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"taskmgr/backend/internal/security"
)

const bearerPrefix = "bearer "

// Metadata keys an edge proxy uses to forward a verified identity.
const (
	ForwardedUserIDKey = "x-user-id"
	ForwardedEmailKey  = "x-user-email"
	ForwardedRootKey   = "x-user-root"
)

// TokenValidator verifies a session token. security.TokenProvider implements it.
type TokenValidator interface {
	Validate(token string) (security.Identity, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer session token
// from gRPC metadata and sets the identity in context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. OTPService methods, AuthService Register and Login, HealthService HealthCheck).
// A valid token on a public method still populates the identity.
func AuthUnary(tokens TokenValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		id, err := tokens.Validate(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		return handler(WithIdentity(ctx, id), req)
	}
}

// ForwardedIdentityUnary returns a unary server interceptor for deployments behind an
// edge that has already verified the session token. It trusts the x-user-* metadata
// and rejects protected RPCs that arrive without it.
func ForwardedIdentityUnary(publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id, ok := forwardedIdentity(ctx)
		if ok {
			return handler(WithIdentity(ctx, id), req)
		}
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		return nil, status.Error(codes.Unauthenticated, "missing forwarded identity")
	}
}

// ForwardIdentity returns ctx with id attached as outgoing x-user-* metadata. It is the
// client half of the edge contract: an edge that has already validated the session token
// calls it before proxying to a server running ForwardedIdentityUnary.
func ForwardIdentity(ctx context.Context, id security.Identity) context.Context {
	root := "false"
	if id.RootAdmin {
		root = "true"
	}
	return metadata.AppendToOutgoingContext(ctx,
		ForwardedUserIDKey, id.UserID,
		ForwardedEmailKey, id.Email,
		ForwardedRootKey, root,
	)
}

func forwardedIdentity(ctx context.Context) (security.Identity, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return security.Identity{}, false
	}
	userID := firstValue(md, ForwardedUserIDKey)
	if userID == "" {
		return security.Identity{}, false
	}
	return security.Identity{
		UserID:    userID,
		Email:     firstValue(md, ForwardedEmailKey),
		RootAdmin: strings.EqualFold(firstValue(md, ForwardedRootKey), "true"),
	}, true
}

func firstValue(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	v := firstValue(md, "authorization")
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
