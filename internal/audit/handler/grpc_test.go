package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmgr/backend/api/rpc"
	"taskmgr/backend/internal/audit/domain"
	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/server/interceptors"
	userdomain "taskmgr/backend/internal/user/domain"
)

type mockAuditRepo struct {
	logs     map[string][]*domain.AuditLog
	gotLimit int
	listErr  error
}

func (m *mockAuditRepo) Create(ctx context.Context, a *domain.AuditLog) error { return nil }

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	m.gotLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.logs[userID], nil
}

type mockUsers map[string]*userdomain.User

func (m mockUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	return m[id], nil
}

func newRepo() *mockAuditRepo {
	return &mockAuditRepo{logs: map[string][]*domain.AuditLog{
		"user-1": {{ID: "a1", UserID: "user-1", Action: "otp_verified", Resource: "otp", IP: "10.0.0.1", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}},
		"user-2": {{ID: "a2", UserID: "user-2", Action: "login_success", Resource: "account"}},
	}}
}

var users = mockUsers{
	"root":   {ID: "root", RootAdmin: true},
	"user-1": {ID: "user-1"},
}

func as(id security.Identity) context.Context {
	return interceptors.WithIdentity(context.Background(), id)
}

func codeOf(err error) codes.Code {
	st, _ := status.FromError(err)
	return st.Code()
}

func TestListAuditLogs_NilRepo(t *testing.T) {
	_, err := NewServer(nil, nil).ListAuditLogs(as(security.Identity{UserID: "user-1"}), rpc.MustMessage(nil))
	if codeOf(err) != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", codeOf(err))
	}
}

func TestListAuditLogs_OwnEntries(t *testing.T) {
	repo := newRepo()
	resp, err := NewServer(repo, users).ListAuditLogs(as(security.Identity{UserID: "user-1"}), rpc.MustMessage(nil))
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	logs := rpc.List(resp, "logs")
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
	entry := logs[0].GetStructValue()
	if rpc.String(entry, "action") != "otp_verified" || rpc.String(entry, "createdAt") != "2026-03-01T00:00:00Z" {
		t.Errorf("entry = %v", entry)
	}
	if repo.gotLimit != defaultPageSize {
		t.Errorf("limit = %d, want %d", repo.gotLimit, defaultPageSize)
	}
}

func TestListAuditLogs_OtherUserRequiresRootAdmin(t *testing.T) {
	srv := NewServer(newRepo(), users)
	req := rpc.MustMessage(map[string]any{"userId": "user-2"})

	_, err := srv.ListAuditLogs(as(security.Identity{UserID: "user-1"}), req)
	if codeOf(err) != codes.PermissionDenied {
		t.Errorf("code = %v, want PermissionDenied", codeOf(err))
	}

	resp, err := srv.ListAuditLogs(as(security.Identity{UserID: "root", RootAdmin: true}), req)
	if err != nil {
		t.Fatalf("root ListAuditLogs: %v", err)
	}
	if len(rpc.List(resp, "logs")) != 1 {
		t.Errorf("resp = %v", resp)
	}

	_, err = NewServer(newRepo(), nil).ListAuditLogs(as(security.Identity{UserID: "root", RootAdmin: true}), req)
	if codeOf(err) != codes.PermissionDenied {
		t.Errorf("code = %v, want PermissionDenied without a user lookup", codeOf(err))
	}
}

func TestListAuditLogs_LimitClampAndErrors(t *testing.T) {
	repo := newRepo()
	srv := NewServer(repo, users)
	if _, err := srv.ListAuditLogs(as(security.Identity{UserID: "user-1"}), rpc.MustMessage(map[string]any{"limit": 10000})); err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if repo.gotLimit != maxPageSize {
		t.Errorf("limit = %d, want %d", repo.gotLimit, maxPageSize)
	}

	_, err := srv.ListAuditLogs(context.Background(), rpc.MustMessage(nil))
	if codeOf(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", codeOf(err))
	}

	_, err = NewServer(&mockAuditRepo{listErr: errors.New("db down")}, users).ListAuditLogs(as(security.Identity{UserID: "user-1"}), rpc.MustMessage(nil))
	if codeOf(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", codeOf(err))
	}
}
