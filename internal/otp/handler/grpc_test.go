package handler

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	otpv1 "taskmgr/backend/api/otp/v1"
	"taskmgr/backend/api/rpc"
	identitydomain "taskmgr/backend/internal/identity/domain"
	"taskmgr/backend/internal/otp"
	"taskmgr/backend/internal/otp/domain"
	"taskmgr/backend/internal/otp/service"
	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/store/memory"
	userdomain "taskmgr/backend/internal/user/domain"
)

const testCode = "135790"

type fixture struct {
	client *otpv1.OTPServiceClient
	store  *memory.Store
	tokens *security.TokenProvider
}

func newFixture(t *testing.T, limits func(*service.Config)) *fixture {
	t.Helper()
	st := memory.New()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	digester, err := otp.NewDigester("handler-test-secret")
	require.NoError(t, err)
	cfg := service.DefaultConfig()
	if limits != nil {
		limits(&cfg)
	}
	engine, err := service.NewEngine(cfg, service.Deps{
		Store:        st,
		Digester:     digester,
		Tokens:       tokens,
		Hasher:       security.NewHasher(4),
		GenerateCode: func() (string, error) { return testCode, nil },
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	otpv1.RegisterOTPServiceServer(srv, NewServer(engine))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{client: otpv1.NewOTPServiceClient(conn), store: st, tokens: tokens}
}

func (f *fixture) addUser(t *testing.T, email string) *userdomain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &userdomain.User{ID: "user-1", Email: email, Name: "Alice", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	require.NoError(t, f.store.Identities().Create(context.Background(), &identitydomain.Identity{
		ID: "ident-1", UserID: u.ID, Provider: identitydomain.IdentityProviderLocal, ProviderID: email, CreatedAt: now,
	}))
	return u
}

func requireKind(t *testing.T, err error, code codes.Code, kind service.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err))
	assert.Equal(t, kind, KindFromStatus(err))
}

func TestServer_NilEngineUnimplemented(t *testing.T) {
	s := NewServer(nil)
	ctx := context.Background()
	_, err := s.RequestChallenge(ctx, rpc.MustMessage(nil))
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = s.VerifyChallenge(ctx, rpc.MustMessage(nil))
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = s.CompleteReset(ctx, rpc.MustMessage(nil))
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t, nil)
	u := f.addUser(t, "alice@example.com")
	ctx := context.Background()

	res, err := f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{
		"email": "Alice@Example.com", "purpose": "login",
	}))
	require.NoError(t, err)
	assert.Equal(t, 600, rpc.Int(res, "expiresInSeconds"))

	out, err := f.client.VerifyChallenge(ctx, rpc.MustMessage(map[string]any{
		"email": "alice@example.com", "purpose": "LOGIN", "code": testCode,
	}))
	require.NoError(t, err)
	assert.True(t, rpc.Bool(out, "verified"))
	assert.Equal(t, u.ID, rpc.String(out, "userId"))
	assert.NotEmpty(t, rpc.String(out, "expiresAt"))

	id, err := f.tokens.Validate(rpc.String(out, "accessToken"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)

	_, err = f.client.VerifyChallenge(ctx, rpc.MustMessage(map[string]any{
		"email": "alice@example.com", "purpose": "LOGIN", "code": testCode,
	}))
	requireKind(t, err, codes.InvalidArgument, service.KindInvalidOrExpiredCode)
}

func TestRequestChallenge_ValidationAndRateLimit(t *testing.T) {
	f := newFixture(t, func(cfg *service.Config) { cfg.Limits.PerIdentityPurpose10Min = 1 })
	ctx := context.Background()

	_, err := f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "bob@example.com", "purpose": "SOMETHING"}))
	requireKind(t, err, codes.InvalidArgument, service.KindValidation)

	_, err = f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "not-an-email", "purpose": "LOGIN"}))
	requireKind(t, err, codes.InvalidArgument, service.KindValidation)

	_, err = f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "bob@example.com", "purpose": "LOGIN"}))
	require.NoError(t, err)
	_, err = f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "bob@example.com", "purpose": "LOGIN"}))
	requireKind(t, err, codes.ResourceExhausted, service.KindRateLimited)
	assert.Equal(t, "Too many OTP requests. Try again later.", status.Convert(err).Message())
}

func TestRequestChallenge_OriginIPFromMetadata(t *testing.T) {
	f := newFixture(t, func(cfg *service.Config) { cfg.Limits.PerOriginIP10Min = 1 })
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-forwarded-for", "198.51.100.4")

	_, err := f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "a@example.com", "purpose": "LOGIN"}))
	require.NoError(t, err)
	_, err = f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "b@example.com", "purpose": "LOGIN"}))
	requireKind(t, err, codes.ResourceExhausted, service.KindRateLimited)

	other := metadata.AppendToOutgoingContext(context.Background(), "x-forwarded-for", "198.51.100.5")
	_, err = f.client.RequestChallenge(other, rpc.MustMessage(map[string]any{"email": "c@example.com", "purpose": "LOGIN"}))
	require.NoError(t, err)
}

func TestVerifyChallenge_LockoutStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "carol@example.com", "purpose": "VERIFY_EMAIL"}))
	require.NoError(t, err)

	wrong := rpc.MustMessage(map[string]any{"email": "carol@example.com", "purpose": "VERIFY_EMAIL", "code": "000000"})
	for i := 0; i < 4; i++ {
		_, err = f.client.VerifyChallenge(ctx, wrong)
		requireKind(t, err, codes.InvalidArgument, service.KindInvalidOrExpiredCode)
	}
	_, err = f.client.VerifyChallenge(ctx, wrong)
	requireKind(t, err, codes.ResourceExhausted, service.KindLockedOut)
	assert.Equal(t, "Too many attempts. Request a new code.", status.Convert(err).Message())
}

func TestVerifyChallenge_VerifyEmailWithoutAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "ghost@example.com", "purpose": "VERIFY_EMAIL"}))
	require.NoError(t, err)

	_, err = f.client.VerifyChallenge(ctx, rpc.MustMessage(map[string]any{
		"email": "ghost@example.com", "purpose": "VERIFY_EMAIL", "code": testCode,
	}))
	requireKind(t, err, codes.NotFound, service.KindAccountNotFound)
}

func TestCompleteReset(t *testing.T) {
	f := newFixture(t, nil)
	f.addUser(t, "dave@example.com")
	ctx := context.Background()
	_, err := f.client.RequestChallenge(ctx, rpc.MustMessage(map[string]any{"email": "dave@example.com", "purpose": "RESET_PASSWORD"}))
	require.NoError(t, err)

	_, err = f.client.CompleteReset(ctx, rpc.MustMessage(map[string]any{
		"email": "dave@example.com", "code": testCode, "newPassword": "short",
	}))
	requireKind(t, err, codes.InvalidArgument, service.KindValidation)

	out, err := f.client.CompleteReset(ctx, rpc.MustMessage(map[string]any{
		"email": "dave@example.com", "code": testCode, "newPassword": "a-new-password",
	}))
	require.NoError(t, err)
	assert.True(t, rpc.Bool(out, "reset"))
}

type stubEngine struct{ err error }

func (s stubEngine) RequestChallenge(context.Context, string, domain.Purpose, string) (*service.RequestResult, error) {
	return nil, s.err
}

func (s stubEngine) VerifyChallenge(context.Context, string, domain.Purpose, string) (*service.VerifyResult, error) {
	return nil, s.err
}

func (s stubEngine) CompleteReset(context.Context, string, string, string) (*service.ResetResult, error) {
	return nil, s.err
}

func TestToStatus_InfrastructureErrorsAreOpaque(t *testing.T) {
	s := NewServer(stubEngine{err: errors.New("pq: connection refused on 10.0.0.3")})
	_, err := s.RequestChallenge(context.Background(), rpc.MustMessage(map[string]any{"email": "a@example.com", "purpose": "LOGIN"}))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
	assert.Empty(t, KindFromStatus(err))

	s = NewServer(stubEngine{err: context.DeadlineExceeded})
	_, err = s.VerifyChallenge(context.Background(), rpc.MustMessage(nil))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

type originRecorder struct {
	stubEngine
	originIP string
}

func (r *originRecorder) RequestChallenge(_ context.Context, _ string, _ domain.Purpose, originIP string) (*service.RequestResult, error) {
	r.originIP = originIP
	return &service.RequestResult{ExpiresInSeconds: 600}, nil
}

func TestRequestChallenge_UnresolvedOriginIsEmpty(t *testing.T) {
	rec := &originRecorder{originIP: "sentinel"}
	s := NewServer(rec)
	_, err := s.RequestChallenge(context.Background(), rpc.MustMessage(map[string]any{"email": "a@example.com", "purpose": "LOGIN"}))
	require.NoError(t, err)
	assert.Empty(t, rec.originIP, "unresolved callers must not share one per-IP window")
}
