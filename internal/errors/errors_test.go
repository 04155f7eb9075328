package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestNewAPIErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"detail field", http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`, "Token is invalid or expired"},
		{"error field", http.StatusForbidden, `{"error":"email not verified"}`, "email not verified"},
		{"message field", http.StatusBadRequest, `{"message":"bad"}`, "bad"},
		{"not json", http.StatusBadGateway, `<html>`, "Bad Gateway"},
		{"empty body", http.StatusNotFound, ``, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tverrors.NewAPIError(tt.status, []byte(tt.body))
			require.Equal(t, tt.detail, e.Detail)
			require.Equal(t, tt.status, e.Status)
		})
	}
}

func TestAPIErrorIs(t *testing.T) {
	err := fmt.Errorf("[boards Posts] %w", tverrors.NewAPIError(http.StatusUnauthorized, nil))
	require.True(t, tverrors.Is(err, tverrors.ErrUnauthorized))
	require.False(t, tverrors.Is(err, tverrors.ErrNotFound))

	var apiErr *tverrors.APIError
	require.True(t, tverrors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, tverrors.Wrapf(nil, "context %d", 1))
	err := tverrors.Wrapf(tverrors.ErrTransport, "get %s", "posts")
	require.EqualError(t, err, "get posts: transport failure")
}
