package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taskmgr/backend/internal/audit/domain"
	auditrepo "taskmgr/backend/internal/audit/repository"
	"taskmgr/backend/internal/telemetry"
)

// OTP lifecycle actions recorded by the engine.
const (
	ActionOTPRequested   = "otp_requested"
	ActionOTPRateLimited = "otp_rate_limited"
	ActionOTPVerified    = "otp_verified"
	ActionOTPFailed      = "otp_failed"
	ActionOTPLocked      = "otp_locked"
	ActionPasswordReset  = "password_reset"
	ActionRegister       = "register"
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
)

// ResourceOTP and ResourceAccount are the resources for engine and account events.
const (
	ResourceOTP     = "otp"
	ResourceAccount = "account"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the OTP engine and account flows.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository, an optional IP extractor
// and an optional telemetry emitter that mirrors each entry.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
	now         func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, now: time.Now}
}

// WithEmitter mirrors every entry to emitter as an "audit" event. emitter may be nil.
func (l *Logger) WithEmitter(emitter telemetry.EventEmitter) *Logger {
	l.emitter = emitter
	return l
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		slog.WarnContext(ctx, "audit: failed to log event", "action", action, "resource", resource, "error", err)
	}
	if l.emitter != nil {
		telemetry.EmitAsync(l.emitter, ctx, telemetry.NewEvent("audit", "audit", userID, map[string]string{
			"action":   action,
			"resource": resource,
			"ip":       ip,
		}))
	}
}
