// Package auth issues and verifies the signed session tokens that prove a
// successful signup or login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultValidity is the lifetime of a session token.
const DefaultValidity = time.Hour

// Claims is the token payload: the principal and an absolute expiry.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Principal is what a verified token proves.
type Principal struct {
	UserID   string
	Username string
}

// TokenService signs and verifies HS256 session tokens with a process-wide
// secret. It is immutable after construction and safe for concurrent use.
type TokenService struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// Option customizes a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now as the source of issue and verification time.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService returns a TokenService. An empty secret is a configuration
// error; a non-positive validity falls back to DefaultValidity.
func NewTokenService(secret []byte, validity time.Duration, opts ...Option) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	s := &TokenService{
		secret:   append([]byte(nil), secret...),
		validity: validity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a token for the principal that expires validity after now.
func (s *TokenService) Issue(userID, username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString and returns the
// principal it names. Errors are common.ErrTokenExpired,
// common.ErrBadSignature or common.ErrMalformedToken.
func (s *TokenService) Verify(tokenString string) (*Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, common.ErrMalformedToken
	}
	if claims.UserID == "" || claims.Username == "" {
		return nil, common.ErrMalformedToken
	}

	return &Principal{UserID: claims.UserID, Username: claims.Username}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return common.ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		return common.ErrMalformedToken
	}
}
