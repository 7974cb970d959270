package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the fixed lifetime of a session token. Tokens are not revocable;
// they stay valid until they expire.
const SessionTTL = time.Hour

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned by NewTokenProvider when no signing secret is configured.
	ErrEmptySecret = errors.New("security: token signing secret must not be empty")
)

// Identity is the verified identity carried by a session token.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	RootAdmin bool
}

// SessionClaims holds JWT claims for the session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Root  bool   `json:"root"`
}

// TokenProvider issues and validates HS256 session tokens keyed by a deployment secret.
// The secret is the root of trust for every downstream service.
type TokenProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with secret. issuer is set on
// claims and required on validation; it may be empty to skip the check.
func NewTokenProvider(secret, issuer string) (*TokenProvider, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenProvider{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for id, valid from now for SessionTTL.
// Returns the token string and its expiration time.
func (p *TokenProvider) Issue(id Identity, now time.Time) (token string, expiresAt time.Time, err error) {
	if id.UserID == "" {
		return "", time.Time{}, errors.New("security: token subject must not be empty")
	}
	now = now.UTC()
	expiresAt = now.Add(SessionTTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: id.Email,
		Name:  id.Name,
		Root:  id.RootAdmin,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and validates the token (signature, algorithm, exp, iss).
// Returns the carried identity, or ErrInvalidToken.
func (p *TokenProvider) Validate(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		RootAdmin: claims.Root,
	}, nil
}
