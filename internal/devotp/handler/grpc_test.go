package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmgr/backend/api/rpc"
	"taskmgr/backend/internal/devotp"
	"taskmgr/backend/internal/otp/domain"
)

func codeOf(err error) codes.Code {
	st, _ := status.FromError(err)
	return st.Code()
}

func TestGetOTP(t *testing.T) {
	store := devotp.NewMemoryStore()
	store.Put(context.Background(), "alice@example.com", domain.PurposeLogin, "246810", time.Now().Add(time.Minute))
	srv := NewServer(store)

	resp, err := srv.GetOTP(context.Background(), rpc.MustMessage(map[string]any{
		"email": "Alice@Example.com", "purpose": "login",
	}))
	if err != nil {
		t.Fatalf("GetOTP: %v", err)
	}
	if rpc.String(resp, "otp") != "246810" {
		t.Errorf("otp = %q, want %q", rpc.String(resp, "otp"), "246810")
	}
	if rpc.String(resp, "note") != devOTPNote {
		t.Errorf("note = %q", rpc.String(resp, "note"))
	}
}

func TestGetOTP_Errors(t *testing.T) {
	store := devotp.NewMemoryStore()
	store.Put(context.Background(), "alice@example.com", domain.PurposeLogin, "246810", time.Now().Add(time.Minute))
	srv := NewServer(store)

	tests := []struct {
		name    string
		email   string
		purpose string
		want    codes.Code
	}{
		{"missing email", "", "LOGIN", codes.InvalidArgument},
		{"bad purpose", "alice@example.com", "SIGNUP", codes.InvalidArgument},
		{"other purpose", "alice@example.com", "RESET_PASSWORD", codes.NotFound},
		{"unknown email", "bob@example.com", "LOGIN", codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.GetOTP(context.Background(), rpc.MustMessage(map[string]any{"email": tt.email, "purpose": tt.purpose}))
			if got := codeOf(err); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetOTP_NilStore(t *testing.T) {
	_, err := NewServer(nil).GetOTP(context.Background(), rpc.MustMessage(nil))
	if codeOf(err) != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", codeOf(err))
	}
}
