package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClockSkew is subtracted from exp so a token about to lapse in flight counts as expired.
const ClockSkew = 5 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoExpiry     = errors.New("token has no expiry")
)

var parser = jwt.NewParser()

// Expiry reads the exp claim without verifying the signature. The signing key
// lives with the API; the web tier only needs to know when to refresh.
func Expiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// AccessExpired reports whether token is known to be expired at now. Opaque or
// malformed tokens are not known to be expired and are left for the API to judge.
func AccessExpired(token string, now time.Time) bool {
	exp, err := Expiry(token)
	if err != nil {
		return false
	}
	return !now.Before(exp.Add(-ClockSkew))
}

func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}
