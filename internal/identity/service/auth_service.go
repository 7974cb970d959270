package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskmgr/backend/internal/audit"
	"taskmgr/backend/internal/db"
	identitydomain "taskmgr/backend/internal/identity/domain"
	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/store"
	userdomain "taskmgr/backend/internal/user/domain"
)

// Sentinel errors for auth service; handler maps them to gRPC codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRootAdminKey    = errors.New("invalid root admin key")
	ErrRootAdminExists        = errors.New("root admin already exists")
	ErrUserNotFound           = errors.New("user not found")
)

// ValidationError reports malformed input. Message is safe to return to callers.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// AuthResult holds the outcome of Register or Login.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *userdomain.User
}

// AuthService implements password register and login and the profile read behind AuthService/Me.
type AuthService struct {
	store        store.Store
	hasher       *security.Hasher
	tokens       *security.TokenProvider
	rootAdminKey string
	audit        audit.AuditLogger
	now          func() time.Time
}

// NewAuthService returns an AuthService. rootAdminKey may be empty; then no
// registration can create the root admin.
func NewAuthService(st store.Store, hasher *security.Hasher, tokens *security.TokenProvider, rootAdminKey string) *AuthService {
	return &AuthService{
		store:        st,
		hasher:       hasher,
		tokens:       tokens,
		rootAdminKey: rootAdminKey,
		now:          time.Now,
	}
}

// WithAudit records register and login events to a. a may be nil.
func (s *AuthService) WithAudit(a audit.AuditLogger) *AuthService {
	s.audit = a
	return s
}

// Register creates a user and local identity and returns a session token.
// A non-blank rootAdminKey must match the configured key and only one root
// admin may ever exist. New users start with an unverified email.
func (s *AuthService) Register(ctx context.Context, name, email, password, rootAdminKey string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := security.ValidatePassword(password); err != nil {
		return nil, invalid(err.Error())
	}

	wantsRoot := strings.TrimSpace(rootAdminKey) != ""
	if wantsRoot && !s.rootKeyMatches(rootAdminKey) {
		return nil, ErrInvalidRootAdminKey
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		RootAdmin: wantsRoot,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, invalid(err.Error())
	}

	err = s.store.WithTx(ctx, func(tx store.Repos) error {
		existing, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyRegistered
		}
		if wantsRoot {
			exists, err := tx.Users().HasRootAdmin(ctx)
			if err != nil {
				return err
			}
			if exists {
				return ErrRootAdminExists
			}
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, db.ErrConflict) {
				// Lost a race on the email or root admin unique index.
				if wantsRoot {
					return ErrRootAdminExists
				}
				return ErrEmailAlreadyRegistered
			}
			return err
		}
		return tx.Identities().Create(ctx, &identitydomain.Identity{
			ID:           uuid.New().String(),
			UserID:       user.ID,
			Provider:     identitydomain.IdentityProviderLocal,
			ProviderID:   email,
			PasswordHash: hashed,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, user.ID, audit.ActionRegister, audit.ResourceAccount, "")
	}
	return s.issue(user, now)
}

// Login authenticates with email and password. Every failure, including an
// unknown email, is ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.CompareDummy([]byte(password))
		s.logLogin(ctx, "", false)
		return nil, ErrInvalidCredentials
	}
	ident, err := s.store.Identities().GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PasswordHash == "" {
		s.hasher.CompareDummy([]byte(password))
		s.logLogin(ctx, user.ID, false)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		s.logLogin(ctx, user.ID, false)
		return nil, ErrInvalidCredentials
	}
	s.logLogin(ctx, user.ID, true)
	return s.issue(user, s.now())
}

// GetUser returns the user with id, or ErrUserNotFound.
func (s *AuthService) GetUser(ctx context.Context, id string) (*userdomain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("user_id is required")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *AuthService) issue(user *userdomain.User, now time.Time) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(security.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		RootAdmin: user.RootAdmin,
	}, now)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, ExpiresAt: exp, User: user}, nil
}

func (s *AuthService) rootKeyMatches(key string) bool {
	if s.rootAdminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.rootAdminKey)) == 1
}

func (s *AuthService) logLogin(ctx context.Context, userID string, ok bool) {
	if s.audit == nil {
		return
	}
	action := audit.ActionLoginFailure
	if ok {
		action = audit.ActionLoginSuccess
	}
	s.audit.LogEvent(ctx, userID, action, audit.ResourceAccount, "")
}

func validateEmail(email string) error {
	if err := userdomain.ValidateEmail(email); err != nil {
		return invalid(err.Error())
	}
	return nil
}
