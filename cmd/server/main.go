package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"

	"taskmgr/backend/internal/audit"
	"taskmgr/backend/internal/config"
	"taskmgr/backend/internal/db"
	"taskmgr/backend/internal/devotp"
	identityservice "taskmgr/backend/internal/identity/service"
	"taskmgr/backend/internal/logging"
	"taskmgr/backend/internal/notify"
	"taskmgr/backend/internal/otp"
	"taskmgr/backend/internal/otp/ratelimit"
	otpservice "taskmgr/backend/internal/otp/service"
	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/server"
	"taskmgr/backend/internal/server/interceptors"
	"taskmgr/backend/internal/store"
	"taskmgr/backend/internal/store/memory"
	"taskmgr/backend/internal/store/postgres"
	"taskmgr/backend/internal/telemetry"
	telemetryotel "taskmgr/backend/internal/telemetry/otel"
	"taskmgr/backend/internal/telemetry/producer"
)

const serviceName = "taskmgr-otp"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kp != nil {
		defer kp.Close()
		emitters = append(emitters, kp)
		logger.Info("telemetry: emitting to kafka", "topic", cfg.TelemetryKafkaTopic)
	}
	emitter := telemetry.Multi(emitters...)

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens, err := security.NewTokenProvider(cfg.TokenSigningSecret, cfg.TokenIssuer)
	if err != nil {
		return err
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	digester, err := otp.NewDigester(cfg.OTPHashSecret)
	if err != nil {
		return err
	}
	auditLogger := audit.NewLogger(st.AuditLogs(), interceptors.ClientIP).WithEmitter(emitter)

	notifier, devStore, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	engine, err := otpservice.NewEngine(otpservice.Config{
		TTL:         cfg.OTPTTL(),
		MaxAttempts: cfg.OTPMaxAttempts,
		Limits: ratelimit.Limits{
			PerIdentityPurpose10Min: cfg.OTPRatePerIdentityPurpose10Min,
			PerIdentityDay:          cfg.OTPRatePerIdentityDay,
			PerOriginIP10Min:        cfg.OTPRatePerOriginIP10Min,
		},
	}, otpservice.Deps{
		Store:    st,
		Digester: digester,
		Tokens:   tokens,
		Hasher:   hasher,
		Notifier: notifier,
		Audit:    auditLogger,
		Meter:    otel.Meter("taskmgr/backend/otp"),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	authSvc := identityservice.NewAuthService(st, hasher, tokens, cfg.RootAdminKey).WithAudit(auditLogger)

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(server.UnaryInterceptors(server.InterceptorConfig{
			Logger:                 logger,
			Tokens:                 tokens,
			TrustForwardedIdentity: cfg.TrustForwardedIdentity,
			AuditRepo:              st.AuditLogs(),
			Telemetry:              emitter,
			RateLimitPerMinute:     cfg.RPCRateLimitPerMinute,
			RateLimitBurst:         cfg.RPCRateLimitBurst,
		})...),
	)
	server.RegisterServices(s, server.Deps{
		OTP:          engine,
		Auth:         authSvc,
		UserRepo:     st.Users(),
		AuditRepo:    st.AuditLogs(),
		HealthPinger: st,
		DevOTPStore:  devStore,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		serveErr <- s.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gRPC server...")
	s.GracefulStop()
	// Let in-flight async telemetry and audit emits finish before providers shut down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	logger.Info("gRPC server stopped")
	return nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return postgres.New(conn, cfg.LockTimeout()), nil
}

// newNotifier picks the delivery transport. Dev OTP mode keeps codes for
// DevService/GetOTP and never emails; the returned devotp.Store is nil otherwise.
func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, devotp.Store, error) {
	if cfg.OTPReturnToClient {
		logger.Warn("dev OTP mode enabled: codes are retrievable via DevService/GetOTP")
		ds := devotp.NewMemoryStore()
		return notify.DevStore{Store: ds}, ds, nil
	}
	if cfg.SMTPHost != "" {
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			TLS:      cfg.SMTPTLS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("smtp: %w", err)
		}
		return n, nil, nil
	}
	return notify.Discard{Logger: logger}, nil, nil
}
