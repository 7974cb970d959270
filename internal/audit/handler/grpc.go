package handler

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	auditv1 "taskmgr/backend/api/audit/v1"
	"taskmgr/backend/api/rpc"
	"taskmgr/backend/internal/audit/domain"
	auditrepo "taskmgr/backend/internal/audit/repository"
	"taskmgr/backend/internal/platform/rbac"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Server implements AuditService for audit log reads.
type Server struct {
	auditv1.UnimplementedAuditServiceServer
	auditRepo auditrepo.Repository
	users     rbac.UserGetter
}

// NewServer returns a new Audit gRPC server. auditRepo may be nil; then all RPCs return Unimplemented.
// users confirms the root admin when a caller asks for another user's entries.
func NewServer(auditRepo auditrepo.Repository, users rbac.UserGetter) *Server {
	return &Server{auditRepo: auditRepo, users: users}
}

// ListAuditLogs returns the newest entries first. Callers read their own entries;
// only the root admin may pass another userId.
func (s *Server) ListAuditLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.auditRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	caller, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(rpc.String(req, "userId"))
	if userID == "" {
		userID = caller.UserID
	}
	if userID != caller.UserID {
		if s.users == nil {
			return nil, status.Error(codes.PermissionDenied, "root admin required")
		}
		if _, err := rbac.RequireRootAdmin(ctx, s.users); err != nil {
			return nil, err
		}
	}
	limit := rpc.Int(req, "limit")
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	logs, err := s.auditRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list audit logs")
	}
	out := make([]any, 0, len(logs))
	for _, l := range logs {
		out = append(out, logFields(l))
	}
	return rpc.Message(map[string]any{"logs": out})
}

func logFields(l *domain.AuditLog) map[string]any {
	return map[string]any{
		"id":        l.ID,
		"userId":    l.UserID,
		"action":    l.Action,
		"resource":  l.Resource,
		"ip":        l.IP,
		"metadata":  l.Metadata,
		"createdAt": l.CreatedAt.UTC().Format(time.RFC3339),
	}
}
