package fakebackend

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/storage/memory"
	"github.com/jrsteele09/tradevortex-client/token/refresh"
	"github.com/stretchr/testify/require"
)

// Client returns an apiclient bound to the backend over an in-memory session store
func (b *Backend) Client(t *testing.T, opts ...apiclient.Option) (*apiclient.Client, *sessions.PersistedStore) {
	t.Helper()
	store := sessions.NewPersistedStore(memory.NewStore())
	ex, err := refresh.NewJSONExchanger(b.APIBaseURL(), nil)
	require.NoError(t, err)
	client, err := apiclient.New(b.APIBaseURL(), store, ex, opts...)
	require.NoError(t, err)
	return client, store
}

// LoggedInClient is Client with a fresh account already logged in
func (b *Backend) LoggedInClient(t *testing.T, opts ...apiclient.Option) (*apiclient.Client, *Account) {
	t.Helper()
	client, store := b.Client(t, opts...)
	id := b.AddUser("trader@example.com", "trader", "password123")
	access, refreshToken := b.IssueTokens(id)
	require.NoError(t, store.Set(context.Background(), sessions.Session{
		AccessToken:  access,
		RefreshToken: refreshToken,
		User:         &sessions.User{ID: id, Username: "trader", Email: "trader@example.com"},
	}))
	return client, b.findAccount(func(a *Account) bool { return a.ID == id })
}

// WriteJSON writes v with status, for routes registered by other packages' tests
func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}
