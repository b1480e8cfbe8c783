package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect decodes tokenStr without verifying its signature. The client holds
// no verification key; the result is only used for local bookkeeping such as
// expiry estimation and must never be trusted for authorization.
func Inspect(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenStr. ok is false for opaque tokens
// and JWTs without exp.
func ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := Inspect(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
