package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/tradevortex-client/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("client-does-not-know-this"))
	require.NoError(t, err)
	return s
}

func TestParseSimpleJWTClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := signed(t, jwtlib.MapClaims{
		"user_id":    42,
		"exp":        exp.Unix(),
		"token_type": "access",
	})

	c, err := token.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "42", c.Subject)
	require.Equal(t, "access", c.TokenType)
	require.True(t, exp.Equal(c.ExpiresAt))
}

func TestParseOpaqueToken(t *testing.T) {
	_, err := token.Parse("tGzv3JOkF0XG5Qx2TlKWIA")
	require.Error(t, err)

	_, ok := token.ParseExpiry("tGzv3JOkF0XG5Qx2TlKWIA")
	require.False(t, ok)
	require.False(t, token.IsExpired("tGzv3JOkF0XG5Qx2TlKWIA"))
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	token.NowTimeFunc = func() time.Time { return now }
	defer func() { token.NowTimeFunc = time.Now }()

	past := signed(t, jwtlib.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()})
	future := signed(t, jwtlib.MapClaims{"sub": "u1", "exp": now.Add(time.Minute).Unix()})
	noExp := signed(t, jwtlib.MapClaims{"sub": "u1"})

	require.True(t, token.IsExpired(past))
	require.False(t, token.IsExpired(future))
	require.False(t, token.IsExpired(noExp))
}

func TestSubject(t *testing.T) {
	require.Equal(t, "u1", token.Subject(signed(t, jwtlib.MapClaims{"sub": "u1"})))
	require.Equal(t, "42", token.Subject(signed(t, jwtlib.MapClaims{"user_id": 42})))
	require.Empty(t, token.Subject("opaque"))
}
