// Package auth issues and verifies the signed bearer tokens handed to
// clients after login and signup.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/streetcredrx/credauth/internal/common"
)

// Payload is the identity carried by a token.
type Payload struct {
	Sub        string
	Email      string
	Role       *string
	RememberMe bool
}

// Claims is the JWT body. Role is serialized as null when unset.
type Claims struct {
	Email      string  `json:"email"`
	Role       *string `json:"role"`
	RememberMe bool    `json:"rememberMe"`
	jwt.RegisteredClaims
}

// TokenService signs tokens with HS256. Tokens are never stored or revoked;
// expiry is the only way one stops working.
type TokenService struct {
	secret      []byte
	defaultTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewTokenService(secret []byte, defaultTTL, rememberTTL time.Duration) *TokenService {
	if defaultTTL <= 0 {
		defaultTTL = common.DefaultSessionDuration
	}
	if rememberTTL <= 0 {
		rememberTTL = common.RememberMeDuration
	}
	return &TokenService{
		secret:      secret,
		defaultTTL:  defaultTTL,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// TTL returns the lifetime applied to a token issued with rememberMe.
func (s *TokenService) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return s.rememberTTL
	}
	return s.defaultTTL
}

// Issue signs a token for p. The rememberMe argument selects the TTL and is
// also recorded in the token.
func (s *TokenService) Issue(p Payload, rememberMe bool) (string, error) {
	now := s.now()
	claims := Claims{
		Email:      p.Email,
		Role:       p.Role,
		RememberMe: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Sub,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL(rememberMe))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of token. Every failure
// is reported as common.ErrInvalidToken; the cause is kept in the message for
// server-side logs only.
func (s *TokenService) Verify(token string) (*Payload, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &Payload{
		Sub:        claims.Subject,
		Email:      claims.Email,
		Role:       claims.Role,
		RememberMe: claims.RememberMe,
	}, nil
}
