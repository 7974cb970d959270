package interceptors

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"taskmgr/backend/internal/audit"
	"taskmgr/backend/internal/audit/domain"
	auditrepo "taskmgr/backend/internal/audit/repository"
)

// unknownIP is recorded when the caller's address cannot be resolved; audit_logs.ip is NOT NULL.
const unknownIP = "unknown"

type rpcAuditMetadata struct {
	StatusCode string `json:"status_code"`
}

// AuditUnary returns a unary server interceptor that records an audit log entry after each RPC.
// skipMethods is the set of full method names to not audit (e.g. HealthCheck, ListAuditLogs).
// Create is best-effort: failures are logged and do not fail the RPC. Only writes when a
// user identity is set; anonymous OTP calls are audited by the engine itself.
func AuditUnary(auditRepo auditrepo.Repository, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if auditRepo == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, ok := GetUserID(ctx)
		if !ok {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		meta, _ := json.Marshal(rpcAuditMetadata{StatusCode: status.Code(err).String()})
		ip := ClientIP(ctx)
		if ip == "" {
			ip = unknownIP
		}
		entry := &domain.AuditLog{
			ID:        uuid.New().String(),
			UserID:    userID,
			Action:    ar.Action,
			Resource:  ar.Resource,
			IP:        ip,
			Metadata:  string(meta),
			CreatedAt: time.Now().UTC(),
		}
		if createErr := auditRepo.Create(ctx, entry); createErr != nil {
			slog.WarnContext(ctx, "audit: failed to create audit log", "method", info.FullMethod, "error", createErr)
		}
		return resp, err
	}
}
