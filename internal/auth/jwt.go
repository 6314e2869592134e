// Package auth issues and validates the HS256 access tokens used by the API.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
	"github.com/cloudrep/voicedesk/pkg/middleware"
)

// Manager signs and verifies JWT access tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// tokenClaims is the on-the-wire claims layout.
type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// NewManager builds a token manager. The secret must be shared with any
// service that verifies these tokens.
func NewManager(secret, issuer string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue creates a signed access token for the given user.
func (m *Manager) Issue(userID, email, role string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning the claims the auth
// middleware injects into request context. It satisfies
// middleware.TokenValidator.
func (m *Manager) Validate(tokenString string) (*middleware.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	return &middleware.Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
