package sessions_test

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/storage/memory"
	"github.com/stretchr/testify/require"
)

var testUser = &sessions.User{ID: 7, Username: "trader", Email: "trader@example.com"}

func setupStore(t *testing.T) (*sessions.PersistedStore, *memory.Store) {
	t.Helper()
	kv := memory.NewStore()
	return sessions.NewPersistedStore(kv), kv
}

func TestEmptyStoreIsLoggedOut(t *testing.T) {
	store, _ := setupStore(t)
	s, err := store.Get(context.Background())
	require.NoError(t, err)
	require.False(t, s.Authenticated())
	require.Nil(t, s.User)
}

func TestSetPersistsAllKeys(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)

	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1", RefreshToken: "R1", User: testUser}))

	v, err := kv.Get(ctx, sessions.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "A1", v)
	v, err = kv.Get(ctx, sessions.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "R1", v)
	v, err = kv.Get(ctx, sessions.UserKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7,"username":"trader","email":"trader@example.com"}`, v)

	// A fresh store over the same storage sees the same session
	reloaded, err := sessions.NewPersistedStore(kv).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "A1", reloaded.AccessToken)
	require.Equal(t, "R1", reloaded.RefreshToken)
	require.Equal(t, testUser, reloaded.User)
}

func TestSetWithoutRefreshKeepsStoredRefresh(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)
	require.NoError(t, kv.Set(ctx, sessions.RefreshTokenKey, "R0"))

	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1", User: testUser}))
	s, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "R0", s.RefreshToken)
}

func TestUpdateAccessReplacesOnlyAccess(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)
	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1", RefreshToken: "R1", User: testUser}))

	require.NoError(t, store.UpdateAccess(ctx, "A2", ""))
	s, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "A2", s.AccessToken)
	require.Equal(t, "R1", s.RefreshToken)
	v, _ := kv.Get(ctx, sessions.AccessTokenKey)
	require.Equal(t, "A2", v)

	// Rotation
	require.NoError(t, store.UpdateAccess(ctx, "A3", "R2"))
	v, _ = kv.Get(ctx, sessions.RefreshTokenKey)
	require.Equal(t, "R2", v)
}

func TestUpdateAccessDoesNotRecreateClearedSession(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)

	require.ErrorIs(t, store.UpdateAccess(ctx, "A1", "R1"), tverrors.ErrSessionExpired)

	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1", RefreshToken: "R1", User: testUser}))
	require.NoError(t, store.Clear(ctx))
	require.ErrorIs(t, store.UpdateAccess(ctx, "A2", "R2"), tverrors.ErrSessionExpired)

	for _, k := range []string{sessions.AccessTokenKey, sessions.RefreshTokenKey, sessions.UserKey} {
		_, err := kv.Get(ctx, k)
		require.ErrorIs(t, err, tverrors.ErrNotFound, k)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)
	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1", RefreshToken: "R1", User: testUser}))

	require.NoError(t, store.Clear(ctx))

	for _, k := range []string{sessions.AccessTokenKey, sessions.RefreshTokenKey, sessions.UserKey} {
		_, err := kv.Get(ctx, k)
		require.ErrorIs(t, err, tverrors.ErrNotFound, k)
	}
	s, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, sessions.Session{}, s)
}

func TestInvalidateRereadsStorage(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)
	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1"}))

	require.NoError(t, kv.Set(ctx, sessions.AccessTokenKey, "from-elsewhere"))
	s, _ := store.Get(ctx)
	require.Equal(t, "A1", s.AccessToken)

	store.Invalidate()
	s, _ = store.Get(ctx)
	require.Equal(t, "from-elsewhere", s.AccessToken)
}

func TestCorruptUserEntry(t *testing.T) {
	ctx := context.Background()
	store, kv := setupStore(t)
	require.NoError(t, kv.Set(ctx, sessions.UserKey, "{not json"))
	_, err := store.Get(ctx)
	require.Error(t, err)
}

func jwtWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	past := jwtWithExp(t, now.Add(-time.Hour))
	future := jwtWithExp(t, now.Add(time.Hour))

	tests := []struct {
		name    string
		session sessions.Session
		expired bool
	}{
		{"logged out", sessions.Session{}, false},
		{"opaque tokens", sessions.Session{AccessToken: "A1", RefreshToken: "R1"}, false},
		{"refresh lapsed", sessions.Session{AccessToken: future, RefreshToken: past}, true},
		{"access lapsed but refreshable", sessions.Session{AccessToken: past, RefreshToken: future}, false},
		{"access lapsed no refresh", sessions.Session{AccessToken: past}, true},
		{"access valid no refresh", sessions.Session{AccessToken: future}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expired, tt.session.Expired(now))
		})
	}
}
