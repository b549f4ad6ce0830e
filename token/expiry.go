package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsTokenExpired reports whether token is unusable at the current time.
// Empty, malformed and exp-less tokens count as expired. The signature is not checked.
func IsTokenExpired(token string) bool {
	return IsTokenExpiredAt(token, time.Now())
}

// IsTokenExpiredAt is IsTokenExpired evaluated at now.
func IsTokenExpiredAt(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return true
	}
	return !now.Before(exp)
}

// ExpiresAt decodes the token payload without verification and returns its exp claim.
func ExpiresAt(token string) (time.Time, bool) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
