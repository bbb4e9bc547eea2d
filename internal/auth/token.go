// Package auth issues and verifies the bearer tokens that resolve requests
// to an actor (user id plus journal role).
package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/domain"
)

// TokenManager issues and validates HMAC-signed JWTs.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager builds a manager from configuration.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Claims is the JWT payload carrying the actor's role.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given user and role.
func (tm *TokenManager) Issue(userID string, role domain.Role) (string, time.Time, error) {
	if !role.IsValid() {
		return "", time.Time{}, domain.NewValidationError("role", "unknown role: "+string(role))
	}
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token and resolves it to an actor.
func (tm *TokenManager) Verify(tokenStr string) (domain.Actor, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithAudience(tm.audience),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Subject == "" || !claims.Role.IsValid() {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	return domain.Actor{UserID: claims.Subject, Role: claims.Role}, nil
}
