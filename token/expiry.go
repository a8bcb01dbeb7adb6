package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UnverifiedExpiry reads the exp claim of a backend-issued JWT without verifying
// its signature. The backend verifies its own tokens; the BFF only needs to know
// when to stop presenting one. ok is false when raw is not a JWT or has no exp.
func UnverifiedExpiry(raw string) (exp time.Time, ok bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}
