package refresh

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coreos/go-oidc/v3/oidc"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"golang.org/x/oauth2"
)

// OAuth2Exchanger performs the standard refresh_token grant against an
// OAuth2 token endpoint. If a verifier is set and the response carries an
// id_token, the ID token is verified and its claims replace the user identity.
type OAuth2Exchanger struct {
	config     *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

var _ Exchanger = (*OAuth2Exchanger)(nil)

func NewOAuth2Exchanger(config *oauth2.Config, verifier *oidc.IDTokenVerifier, httpClient *http.Client) *OAuth2Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuth2Exchanger{
		config:     config,
		verifier:   verifier,
		httpClient: httpClient,
	}
}

func (e *OAuth2Exchanger) Exchange(ctx context.Context, refreshToken string) (*Result, error) {
	if refreshToken == "" {
		return nil, tverrors.ErrNoRefreshToken
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	// An access-token-less token is never Valid, so the source always refreshes
	tok, err := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if tverrors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, fmt.Errorf("[refresh OAuth2 Exchange] %w: %w", tverrors.ErrRefreshRejected,
				tverrors.NewAPIError(retrieveErr.Response.StatusCode, retrieveErr.Body))
		}
		return nil, fmt.Errorf("[refresh OAuth2 Exchange] %w: %w", tverrors.ErrTransport, err)
	}

	result := &Result{AccessToken: tok.AccessToken}
	// The oauth2 package carries the old refresh token forward when none is returned
	if tok.RefreshToken != refreshToken {
		result.RefreshToken = tok.RefreshToken
	}

	if e.verifier == nil {
		return result, nil
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return result, nil
	}
	idToken, err := e.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[refresh OAuth2 Exchange] %w: id token verification failed: %w", tverrors.ErrRefreshRejected, err)
	}
	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[refresh OAuth2 Exchange] failed to extract claims: %w", err)
	}
	id, _ := strconv.ParseInt(claims.Sub, 10, 64)
	result.User = &sessions.User{ID: id, Username: claims.Name, Email: claims.Email}
	return result, nil
}
