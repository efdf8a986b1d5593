// Package auth provides JWT token issuing/validation, bcrypt password
// hashing, the bearer-token middleware, and the optional GitHub OAuth
// provider.
//
// Token flow: register/login issue an access token (short-lived) and a
// refresh token (long-lived), both signed with the same HMAC secret. API
// calls carry the access token in an "Authorization: Bearer <token>" header;
// the middleware validates it and injects the identity (user id + username)
// into the request context. When the access token expires, the client trades
// the refresh token for a new one at /api/refresh.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "gravix"

// Identity is the authenticated caller, as carried inside a token.
type Identity struct {
	UserID   string
	Username string
}

// TokenService signs and verifies JWTs.
//
// The same HMAC secret signs both token kinds; they differ only in lifetime.
// Keep the secret at least 32 random bytes in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService. A zero TTL falls back to the
// default (15m access, 7d refresh); negative TTLs are taken literally, which
// tests use to mint already-expired tokens.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// claims is the JWT payload. "sub" carries the user id; the username rides
// along as a private claim so handlers can attribute songs without a user
// lookup.
type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateAccess creates a short-lived access token for the identity.
func (s *TokenService) GenerateAccess(id Identity) (string, error) {
	return s.generate(id, s.accessTTL)
}

// GenerateRefresh creates a long-lived refresh token for the identity.
func (s *TokenService) GenerateRefresh(id Identity) (string, error) {
	return s.generate(id, s.refreshTTL)
}

func (s *TokenService) generate(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string, returning the embedded identity.
//
// The jwt library checks the signature, expiry and issuer; WithValidMethods
// pins the algorithm to HS256 so an attacker cannot downgrade to "none".
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, Username: c.Username}, nil
}
