// Package bearer reads display information out of bearer tokens. It never
// verifies signatures; tokens stay opaque credentials to everything else.
package bearer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for tokens that are not JWTs.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims is what the client may show about a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn returns the time left before expiry, zero once expired, and -1
// when the token carries no expiry.
func (c Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return -1
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Inspect decodes the registered claims of a JWT without verifying it.
func Inspect(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, ErrNotJWT
		}
		return Claims{}, fmt.Errorf("inspecting token: %w", err)
	}

	c := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
