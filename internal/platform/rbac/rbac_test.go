package rbac

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/server/interceptors"
	"taskmgr/backend/internal/user/domain"
)

// mockUserGetter implements UserGetter for tests.
type mockUserGetter struct {
	users map[string]*domain.User
	err   error
}

func (m *mockUserGetter) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[id], nil
}

func codeOf(err error) codes.Code {
	st, _ := status.FromError(err)
	return st.Code()
}

func TestRequireUser(t *testing.T) {
	_, err := RequireUser(context.Background())
	if codeOf(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", codeOf(err))
	}

	ctx := interceptors.WithIdentity(context.Background(), security.Identity{UserID: "user-1"})
	id, err := RequireUser(ctx)
	if err != nil {
		t.Fatalf("RequireUser: %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", id.UserID, "user-1")
	}
}

func TestRequireRootAdmin(t *testing.T) {
	getter := &mockUserGetter{users: map[string]*domain.User{
		"root":    {ID: "root", RootAdmin: true},
		"demoted": {ID: "demoted"},
	}}

	tests := []struct {
		name string
		ctx  context.Context
		get  UserGetter
		want codes.Code
	}{
		{"unauthenticated", context.Background(), getter, codes.Unauthenticated},
		{"no claim", interceptors.WithIdentity(context.Background(), security.Identity{UserID: "root"}), getter, codes.PermissionDenied},
		{"claim but flag cleared", interceptors.WithIdentity(context.Background(), security.Identity{UserID: "demoted", RootAdmin: true}), getter, codes.PermissionDenied},
		{"claim but user gone", interceptors.WithIdentity(context.Background(), security.Identity{UserID: "gone", RootAdmin: true}), getter, codes.PermissionDenied},
		{"lookup error", interceptors.WithIdentity(context.Background(), security.Identity{UserID: "root", RootAdmin: true}), &mockUserGetter{err: errors.New("db down")}, codes.Internal},
		{"root admin", interceptors.WithIdentity(context.Background(), security.Identity{UserID: "root", RootAdmin: true}), getter, codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RequireRootAdmin(tt.ctx, tt.get)
			if got := codeOf(err); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
