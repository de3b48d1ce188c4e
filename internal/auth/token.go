package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a bearer token cannot be trusted.
var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock allows tests to override the clock used for issuing and validating.
func (m *TokenManager) WithClock(fn func() time.Time) {
	if fn != nil {
		m.now = fn
	}
}

// Issue signs a token for a student or admin identity.
func (m *TokenManager) Issue(id Identity) (string, error) {
	if id.Kind == KindAnonymous || id.Subject == "" {
		return "", fmt.Errorf("%w: cannot issue a token for %s", ErrInvalidToken, id.Kind)
	}
	now := m.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: id.Kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return t.SignedString(m.secret)
}

// Parse validates a raw token and returns the identity it carries.
func (m *TokenManager) Parse(raw string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Anonymous(), fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	switch c.Role {
	case KindAdmin.String():
		return AdminIdentity(c.Subject), nil
	case KindStudent.String():
		return StudentIdentity(c.Subject), nil
	default:
		return Anonymous(), fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}
}

// Resolve maps an Authorization header value to an identity. A missing,
// malformed or invalid credential resolves to Anonymous.
func (m *TokenManager) Resolve(header string) Identity {
	raw := BearerToken(header)
	if raw == "" {
		return Anonymous()
	}
	id, err := m.Parse(raw)
	if err != nil {
		return Anonymous()
	}
	return id
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
