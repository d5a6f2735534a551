// Package tokentest mints access and refresh tokens for tests.
package tokentest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "collabctl-test-signing-secret-not-verified-by-client"

// Claims describes the token to mint.
type Claims struct {
	Subject string
	Email   string
	Role    string
	Expires time.Time
}

// Mint returns a signed HS256 token carrying sub, email, role and exp.
// A zero Expires omits the exp claim.
func Mint(t testing.TB, c Claims) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   c.Subject,
		"email": c.Email,
		"role":  c.Role,
	}
	if !c.Expires.IsZero() {
		claims["exp"] = c.Expires.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return signed
}

// Access mints an access token for a user expiring at exp.
func Access(t testing.TB, sub, email, role string, exp time.Time) string {
	t.Helper()
	return Mint(t, Claims{Subject: sub, Email: email, Role: role, Expires: exp})
}

// Refresh mints a refresh token expiring at exp.
func Refresh(t testing.TB, sub string, exp time.Time) string {
	t.Helper()
	return Mint(t, Claims{Subject: sub, Expires: exp})
}
