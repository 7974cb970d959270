package interceptors

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	auditdomain "taskmgr/backend/internal/audit/domain"
	"taskmgr/backend/internal/security"
)

// mockAuditRepoForInterceptor implements auditrepo.Repository for interceptor tests.
type mockAuditRepoForInterceptor struct {
	mu      sync.Mutex
	entries []*auditdomain.AuditLog
	err     error
}

func (m *mockAuditRepoForInterceptor) ListByUser(ctx context.Context, userID string, limit int) ([]*auditdomain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepoForInterceptor) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, a)
	return nil
}

func authedContext() context.Context {
	return WithIdentity(context.Background(), security.Identity{UserID: "user-1", Email: "alice@example.com"})
}

func TestAuditUnary_SkipMethod(t *testing.T) {
	repo := &mockAuditRepoForInterceptor{}
	interceptor := AuditUnary(repo, map[string]bool{"/test.Service/HealthCheck": true})

	resp, err := interceptor(authedContext(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/HealthCheck",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
	if len(repo.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(repo.entries))
	}
}

func TestAuditUnary_AuthenticatedRequest(t *testing.T) {
	repo := &mockAuditRepoForInterceptor{}
	interceptor := AuditUnary(repo, map[string]bool{})

	ctx := metadata.NewIncomingContext(authedContext(), metadata.New(map[string]string{
		"x-forwarded-for": "203.0.113.7",
	}))
	_, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{
		FullMethod: "/taskmgr.user.v1.UserService/LookupUser",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("entry user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != "lookup" || entry.Resource != "user" {
		t.Errorf("entry action/resource = %q/%q", entry.Action, entry.Resource)
	}
	if entry.IP != "203.0.113.7" {
		t.Errorf("entry ip = %q", entry.IP)
	}
	if !strings.Contains(entry.Metadata, `"status_code":"OK"`) {
		t.Errorf("entry metadata = %q", entry.Metadata)
	}
}

func TestAuditUnary_UnauthenticatedRequest(t *testing.T) {
	repo := &mockAuditRepoForInterceptor{}
	interceptor := AuditUnary(repo, map[string]bool{})

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/SomeMethod",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
	if len(repo.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(repo.entries))
	}
}

func TestAuditUnary_RepositoryError(t *testing.T) {
	repo := &mockAuditRepoForInterceptor{err: errors.New("database error")}
	interceptor := AuditUnary(repo, map[string]bool{})

	resp, err := interceptor(authedContext(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/SomeMethod",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor should not fail on audit error: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuditUnary_NilRepo(t *testing.T) {
	interceptor := AuditUnary(nil, nil)
	resp, err := interceptor(authedContext(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/SomeMethod",
	}, okHandler)
	if err != nil || resp != "success" {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}
}

func TestAuditUnary_HandlerError(t *testing.T) {
	repo := &mockAuditRepoForInterceptor{}
	interceptor := AuditUnary(repo, map[string]bool{})

	_, err := interceptor(authedContext(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/SomeMethod",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "user not found")
	})
	if err == nil {
		t.Fatal("expected error from handler")
	}
	if len(repo.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(repo.entries))
	}
	if !strings.Contains(repo.entries[0].Metadata, "NotFound") {
		t.Errorf("entry metadata = %q", repo.entries[0].Metadata)
	}
}

func TestAuditUnary_UnresolvedIPRecordedAsUnknown(t *testing.T) {
	repo := &mockAuditRepoForInterceptor{}
	interceptor := AuditUnary(repo, nil)

	_, err := interceptor(authedContext(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/taskmgr.user.v1.UserService/GetUser",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("entry ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
}
