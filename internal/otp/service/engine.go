// Package service implements the OTP verification engine: issuance behind the
// rate limiter, exactly-once consumption under a row lock, and the
// purpose-specific effects of a successful match.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"taskmgr/backend/internal/audit"
	identitydomain "taskmgr/backend/internal/identity/domain"
	"taskmgr/backend/internal/notify"
	"taskmgr/backend/internal/otp"
	"taskmgr/backend/internal/otp/domain"
	"taskmgr/backend/internal/otp/ratelimit"
	otprepo "taskmgr/backend/internal/otp/repository"
	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/store"
	userdomain "taskmgr/backend/internal/user/domain"
)

// Config holds the engine bounds. Build it from config.Config; there is no global state.
type Config struct {
	// TTL is the lifetime of an issued code.
	TTL time.Duration
	// MaxAttempts is the number of wrong submissions after which a challenge is consumed.
	MaxAttempts int
	// Limits are the issuance rate-limit bounds.
	Limits ratelimit.Limits
}

// DefaultConfig returns a 10 minute TTL, 5 attempts and ratelimit.DefaultLimits.
func DefaultConfig() Config {
	return Config{TTL: 10 * time.Minute, MaxAttempts: 5, Limits: ratelimit.DefaultLimits()}
}

// TokenIssuer mints session tokens. security.TokenProvider implements it.
type TokenIssuer interface {
	Issue(id security.Identity, now time.Time) (token string, expiresAt time.Time, err error)
}

// PasswordHasher hashes a new password credential. security.Hasher implements it.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
}

// Deps are the engine collaborators. Store, Digester, Tokens and Hasher are required.
type Deps struct {
	Store    store.Store
	Digester *otp.Digester
	Tokens   TokenIssuer
	Hasher   PasswordHasher

	// Notifier delivers codes; nil drops them. Delivery runs asynchronously.
	Notifier notify.Notifier
	// Audit records lifecycle events; may be nil.
	Audit audit.AuditLogger
	// Meter registers engine counters; nil uses the global meter provider.
	Meter  metric.Meter
	Logger *slog.Logger

	// Now, NewID and GenerateCode default to the wall clock, uuid.NewString and otp.GenerateCode.
	Now          func() time.Time
	NewID        func() string
	GenerateCode func() (string, error)
}

// RequestResult is returned by RequestChallenge.
type RequestResult struct {
	ExpiresInSeconds int
	ExpiresAt        time.Time
}

// VerifyResult is returned by VerifyChallenge. AccessToken is set for LOGIN;
// UserID is set for LOGIN and VERIFY_EMAIL.
type VerifyResult struct {
	Verified       bool
	AccessToken    string
	TokenExpiresAt time.Time
	UserID         string
}

// ResetResult is returned by CompleteReset.
type ResetResult struct {
	Reset bool
}

// Engine issues and verifies one-time codes. It holds no per-request state;
// all coordination between concurrent requests goes through the Store.
type Engine struct {
	cfg        Config
	store      store.Store
	limiter    *ratelimit.Limiter
	digester   *otp.Digester
	tokens     TokenIssuer
	hasher     PasswordHasher
	dispatcher *notify.Dispatcher
	audit      audit.AuditLogger
	metrics    *metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	genCode    func() (string, error)
}

// NewEngine validates cfg and deps and returns an Engine.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("otp service: TTL must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("otp service: max attempts must be positive")
	}
	limiter, err := ratelimit.New(cfg.Limits)
	if err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Digester == nil || deps.Tokens == nil || deps.Hasher == nil {
		return nil, errors.New("otp service: store, digester, tokens and hasher are required")
	}
	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("otp service: metrics: %w", err)
	}
	e := &Engine{
		cfg:      cfg,
		store:    deps.Store,
		limiter:  limiter,
		digester: deps.Digester,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		audit:    deps.Audit,
		metrics:  m,
		logger:   deps.Logger,
		now:      deps.Now,
		newID:    deps.NewID,
		genCode:  deps.GenerateCode,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.genCode == nil {
		e.genCode = otp.GenerateCode
	}
	if deps.Notifier != nil {
		e.dispatcher = notify.NewDispatcher(deps.Notifier, 0, e.logger)
	}
	return e, nil
}

// NormalizeEmail trims and lowercases an email.
func NormalizeEmail(email string) string {
	return userdomain.NormalizeEmail(email)
}

func validateEmail(email string) *Error {
	switch err := userdomain.ValidateEmail(email); {
	case errors.Is(err, userdomain.ErrEmailRequired):
		return validation("Email is required")
	case err != nil:
		return validation("Email is invalid")
	}
	return nil
}

func validatePurpose(purpose domain.Purpose) *Error {
	if !purpose.Valid() {
		return validation("Purpose must be one of VERIFY_EMAIL, LOGIN, RESET_PASSWORD")
	}
	return nil
}

// RequestChallenge issues a new code for (email, purpose) after the rate
// limiter admits it. The challenge is stored before delivery starts; delivery
// failures never fail the request. originIP may be empty.
func (e *Engine) RequestChallenge(ctx context.Context, email string, purpose domain.Purpose, originIP string) (*RequestResult, error) {
	email = NormalizeEmail(email)
	if verr := validateEmail(email); verr != nil {
		return nil, verr
	}
	if verr := validatePurpose(purpose); verr != nil {
		return nil, verr
	}
	originIP = strings.TrimSpace(originIP)
	now := e.now().UTC()

	if err := e.limiter.Check(ctx, e.store.Challenges(), email, purpose, originIP, now); err != nil {
		var exceeded *ratelimit.ExceededError
		if errors.As(err, &exceeded) {
			e.metrics.recordRateLimited(ctx, purpose, string(exceeded.Window))
			e.logger.WarnContext(ctx, "otp: issuance rate limited", "purpose", string(purpose), "window", string(exceeded.Window))
			e.logAudit(ctx, "", audit.ActionOTPRateLimited, email, purpose, map[string]string{"window": string(exceeded.Window)})
			return nil, rateLimited(exceeded)
		}
		return nil, fmt.Errorf("request challenge: %w", err)
	}

	var userID string
	u, err := e.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("request challenge: lookup user: %w", err)
	}
	if u != nil {
		userID = u.ID
	}

	code, err := e.genCode()
	if err != nil {
		return nil, fmt.Errorf("request challenge: %w", err)
	}
	c := &domain.Challenge{
		ID:          e.newID(),
		Email:       email,
		Purpose:     purpose,
		UserID:      userID,
		CodeDigest:  e.digester.Digest(email, string(purpose), code),
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.cfg.TTL),
		MaxAttempts: e.cfg.MaxAttempts,
		OriginIP:    originIP,
	}
	if err := e.store.Challenges().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("request challenge: create: %w", err)
	}

	e.dispatcher.Dispatch(ctx, notify.Message{Email: email, Purpose: purpose, Code: code, ExpiresAt: c.ExpiresAt})
	e.metrics.recordIssued(ctx, purpose)
	e.logAudit(ctx, userID, audit.ActionOTPRequested, email, purpose, nil)
	e.logger.InfoContext(ctx, "otp: challenge issued", "challenge_id", c.ID, "purpose", string(purpose))

	return &RequestResult{
		ExpiresInSeconds: int(c.ExpiresAt.Sub(now) / time.Second),
		ExpiresAt:        c.ExpiresAt,
	}, nil
}

// VerifyChallenge consumes the latest pending challenge for (email, purpose)
// when code matches. VERIFY_EMAIL marks the account verified; LOGIN issues a
// session token; RESET_PASSWORD only consumes (use CompleteReset to change the
// password). Concurrent calls with the correct code yield exactly one success.
func (e *Engine) VerifyChallenge(ctx context.Context, email string, purpose domain.Purpose, code string) (*VerifyResult, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if verr := validateEmail(email); verr != nil {
		return nil, verr
	}
	if verr := validatePurpose(purpose); verr != nil {
		return nil, verr
	}
	if code == "" {
		return nil, validation("Code is required")
	}
	now := e.now().UTC()

	var (
		res     *VerifyResult
		failure *Error
		matched *domain.Challenge
	)
	err := e.store.WithTx(ctx, func(tx store.Repos) error {
		c, fail, err := e.consume(ctx, tx, email, purpose, code, now)
		if err != nil {
			return err
		}
		matched = c
		if fail != nil {
			// Commit so the attempt counter and any lockout persist.
			failure = fail
			return nil
		}
		switch purpose {
		case domain.PurposeVerifyEmail:
			u, err := tx.Users().GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if u == nil {
				failure = accountNotFound("User not found")
				return nil
			}
			if err := tx.Users().SetEmailVerified(ctx, u.ID); err != nil {
				return err
			}
			res = &VerifyResult{Verified: true, UserID: u.ID}
		case domain.PurposeLogin:
			u, err := tx.Users().GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if u == nil {
				failure = accountNotFound("Invalid credentials")
				return nil
			}
			// Signed inside the transaction so a signing failure rolls back consumption.
			token, expiresAt, err := e.tokens.Issue(security.Identity{
				UserID:    u.ID,
				Email:     u.Email,
				Name:      u.Name,
				RootAdmin: u.RootAdmin,
			}, now)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			res = &VerifyResult{Verified: true, AccessToken: token, TokenExpiresAt: expiresAt, UserID: u.ID}
		default:
			res = &VerifyResult{Verified: true}
		}
		return nil
	})
	if err != nil {
		e.metrics.recordVerification(ctx, purpose, outcomeError)
		return nil, fmt.Errorf("verify challenge: %w", err)
	}

	e.recordOutcome(ctx, email, purpose, matched, failure)
	if failure != nil {
		return nil, failure
	}
	return res, nil
}

// CompleteReset consumes the latest pending RESET_PASSWORD challenge for email
// and, in the same transaction, replaces the account's password credential.
func (e *Engine) CompleteReset(ctx context.Context, email, code, newPassword string) (*ResetResult, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if verr := validateEmail(email); verr != nil {
		return nil, verr
	}
	if code == "" {
		return nil, validation("Code is required")
	}
	if err := security.ValidatePassword(newPassword); err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	// Hash before locking; bcrypt is slow and the lock should be short.
	hash, err := e.hasher.Hash([]byte(newPassword))
	if err != nil {
		return nil, fmt.Errorf("complete reset: hash password: %w", err)
	}
	purpose := domain.PurposeResetPassword
	now := e.now().UTC()

	var (
		failure *Error
		matched *domain.Challenge
		userID  string
	)
	err = e.store.WithTx(ctx, func(tx store.Repos) error {
		c, fail, err := e.consume(ctx, tx, email, purpose, code, now)
		if err != nil {
			return err
		}
		matched = c
		if fail != nil {
			failure = fail
			return nil
		}
		u, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u == nil {
			failure = invalidCode()
			return nil
		}
		userID = u.ID
		ident, err := tx.Identities().GetByUserAndProvider(ctx, u.ID, identitydomain.IdentityProviderLocal)
		if err != nil {
			return err
		}
		if ident == nil {
			return tx.Identities().Create(ctx, &identitydomain.Identity{
				ID:           e.newID(),
				UserID:       u.ID,
				Provider:     identitydomain.IdentityProviderLocal,
				ProviderID:   u.Email,
				PasswordHash: hash,
				CreatedAt:    now,
			})
		}
		return tx.Identities().UpdatePasswordHash(ctx, ident.ID, hash)
	})
	if err != nil {
		e.metrics.recordVerification(ctx, purpose, outcomeError)
		return nil, fmt.Errorf("complete reset: %w", err)
	}

	e.recordOutcome(ctx, email, purpose, matched, failure)
	if failure != nil {
		return nil, failure
	}
	e.logAudit(ctx, userID, audit.ActionPasswordReset, email, purpose, nil)
	return &ResetResult{Reset: true}, nil
}

// consume runs the locked read-check-mutate sequence. It returns the selected
// challenge (nil when none was pending), a domain failure, or a store error.
// On a domain failure the caller must still commit so the state change persists.
func (e *Engine) consume(ctx context.Context, tx store.Repos, email string, purpose domain.Purpose, code string, now time.Time) (*domain.Challenge, *Error, error) {
	repo := tx.Challenges()
	c, err := repo.LatestPendingForUpdate(ctx, email, purpose, now)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, invalidCode(), nil
	}

	var fail *Error
	if c.AttemptsExhausted() {
		c.Consume(now)
		fail = lockedOut()
	} else if !otp.DigestEqual(c.CodeDigest, e.digester.Digest(email, string(purpose), code)) {
		if c.RecordFailedAttempt(now) {
			fail = lockedOut()
		} else {
			fail = invalidCode()
		}
	} else {
		c.Consume(now)
	}

	if err := repo.UpdateState(ctx, c); err != nil {
		if errors.Is(err, otprepo.ErrAlreadyConsumed) {
			// Another writer won the row; this submission sees no pending challenge.
			return nil, invalidCode(), nil
		}
		return nil, nil, err
	}
	return c, fail, nil
}

func (e *Engine) recordOutcome(ctx context.Context, email string, purpose domain.Purpose, c *domain.Challenge, failure *Error) {
	var userID string
	if c != nil {
		userID = c.UserID
	}
	var err error
	if failure != nil {
		err = failure
	}
	e.metrics.recordVerification(ctx, purpose, outcomeFor(err))

	switch {
	case failure == nil:
		e.logAudit(ctx, userID, audit.ActionOTPVerified, email, purpose, nil)
	case failure.Kind == KindLockedOut:
		e.logger.WarnContext(ctx, "otp: challenge locked out", "challenge_id", c.ID, "purpose", string(purpose))
		e.logAudit(ctx, userID, audit.ActionOTPLocked, email, purpose, nil)
	default:
		e.logAudit(ctx, userID, audit.ActionOTPFailed, email, purpose, map[string]string{"reason": string(failure.Kind)})
	}
}

func (e *Engine) logAudit(ctx context.Context, userID, action, email string, purpose domain.Purpose, extra map[string]string) {
	if e.audit == nil {
		return
	}
	meta := map[string]string{"email": email, "purpose": string(purpose)}
	for k, v := range extra {
		meta[k] = v
	}
	b, _ := json.Marshal(meta)
	e.audit.LogEvent(ctx, userID, action, audit.ResourceOTP, string(b))
}
