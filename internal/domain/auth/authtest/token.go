// Package authtest signs bearer tokens for handler and middleware tests.
package authtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"leaveledger/internal/domain/auth"
)

// Token signs claims with HS256, expiring ttl from now. A negative ttl yields
// an already expired token.
func Token(t testing.TB, secret string, claims auth.Claims, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
