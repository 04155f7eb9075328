package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims are the unverified claims the client cares about. The backend issues
// simplejwt tokens, which carry user_id rather than sub.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	TokenType string
}

// Parse reads the claims of a JWT without verifying its signature; the
// backend verifies, the client only needs to know when a credential lapses.
// Opaque tokens return an error.
func Parse(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("[token Parse] not a JWT")
	}
	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("[token Parse] %w", err)
	}
	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("[token Parse] unexpected claims type")
	}

	c := &Claims{}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		c.Subject = sub
	} else if uid, ok := mc["user_id"]; ok {
		c.Subject = fmt.Sprint(uid)
	}
	if tt, ok := mc["token_type"].(string); ok {
		c.TokenType = tt
	}
	return c, nil
}

// ParseExpiry returns the exp claim, and false for opaque tokens or tokens without one
func ParseExpiry(raw string) (time.Time, bool) {
	c, err := Parse(raw)
	if err != nil || c.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return c.ExpiresAt, true
}

// IsExpired is true only for a JWT whose exp has passed
func IsExpired(raw string) bool {
	exp, ok := ParseExpiry(raw)
	return ok && !NowTimeFunc().Before(exp)
}

// Subject returns the unverified sub (or user_id) claim, "" for opaque tokens
func Subject(raw string) string {
	c, err := Parse(raw)
	if err != nil {
		return ""
	}
	return c.Subject
}
