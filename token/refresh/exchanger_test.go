package refresh_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/tradevortex-client/internal/config"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/internal/fakebackend"
	"github.com/jrsteele09/tradevortex-client/token"
	"github.com/jrsteele09/tradevortex-client/token/refresh"
	"github.com/stretchr/testify/require"
)

func TestJSONExchangeRotates(t *testing.T) {
	backend := fakebackend.New(t)
	userID := backend.AddUser("trader@example.com", "trader", "pw")
	_, r1 := backend.IssueTokens(userID)

	ex, err := refresh.NewJSONExchanger(backend.APIBaseURL(), nil)
	require.NoError(t, err)

	res, err := ex.Exchange(context.Background(), r1)
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.NotEqual(t, r1, res.RefreshToken)

	claims, err := token.Parse(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "access", claims.TokenType)

	// The rotated token is blacklisted
	_, err = ex.Exchange(context.Background(), r1)
	require.ErrorIs(t, err, tverrors.ErrRefreshRejected)
	require.ErrorIs(t, err, tverrors.ErrUnauthorized)
}

func TestJSONExchangeWithoutRotation(t *testing.T) {
	backend := fakebackend.New(t, fakebackend.WithoutRotation())
	userID := backend.AddUser("trader@example.com", "trader", "pw")
	_, r1 := backend.IssueTokens(userID)

	ex, err := refresh.NewJSONExchanger(backend.APIBaseURL(), nil)
	require.NoError(t, err)
	res, err := ex.Exchange(context.Background(), r1)
	require.NoError(t, err)
	require.Empty(t, res.RefreshToken)
}

func TestJSONExchangeRejectsAccessTokenAsRefresh(t *testing.T) {
	backend := fakebackend.New(t)
	userID := backend.AddUser("trader@example.com", "trader", "pw")
	a1, _ := backend.IssueTokens(userID)

	ex, err := refresh.NewJSONExchanger(backend.APIBaseURL(), nil)
	require.NoError(t, err)
	_, err = ex.Exchange(context.Background(), a1)
	require.ErrorIs(t, err, tverrors.ErrRefreshRejected)
}

func TestJSONExchangeNoRefreshToken(t *testing.T) {
	ex, err := refresh.NewJSONExchanger("http://127.0.0.1:1/api/", nil)
	require.NoError(t, err)
	_, err = ex.Exchange(context.Background(), "")
	require.ErrorIs(t, err, tverrors.ErrNoRefreshToken)
}

func TestJSONExchangeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/api/"
	srv.Close()

	ex, err := refresh.NewJSONExchanger(url, nil)
	require.NoError(t, err)
	_, err = ex.Exchange(context.Background(), "R1")
	require.ErrorIs(t, err, tverrors.ErrTransport)
}

func TestFromConfigModes(t *testing.T) {
	t.Setenv("REFRESH_MODE", "json")
	ex, err := refresh.FromConfig(context.Background(), config.New(), nil)
	require.NoError(t, err)
	require.IsType(t, &refresh.JSONExchanger{}, ex)

	t.Setenv("REFRESH_MODE", "oauth2")
	_, err = refresh.FromConfig(context.Background(), config.New(), nil)
	require.ErrorIs(t, err, tverrors.ErrInvalidRequest)

	t.Setenv("OAUTH_TOKEN_URL", "http://auth.example/token")
	ex, err = refresh.FromConfig(context.Background(), config.New(), nil)
	require.NoError(t, err)
	require.IsType(t, &refresh.OAuth2Exchanger{}, ex)

	t.Setenv("REFRESH_MODE", "carrier-pigeon")
	_, err = refresh.FromConfig(context.Background(), config.New(), nil)
	require.ErrorIs(t, err, tverrors.ErrUnsupported)
}
