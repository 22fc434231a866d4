// ABOUTME: Bearer-token claims inspection without verification.
// ABOUTME: The client cannot verify gateway-issued JWTs; it only peeks at expiry to warn early.

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry indicates the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// TokenExpiry extracts the expiry time from a JWT bearer token without
// verifying its signature — the signing secret lives on the gateway. Used
// to warn before attempting a handshake with a token that already expired.
func TokenExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}
