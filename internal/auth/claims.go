package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseClaims extracts the registered claims from a bearer token without
// verifying its signature. The client has no verification key; it only
// inspects expiry and subject, the server remains the authority.
func ParseClaims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is in the past. Tokens
// without an exp claim, or tokens that do not parse, are treated as
// expired so a stale credential never reaches the broker.
func Expired(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time)
}
