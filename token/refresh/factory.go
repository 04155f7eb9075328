package refresh

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/tradevortex-client/internal/config"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"golang.org/x/oauth2"
)

// FromConfig builds the exchanger selected by REFRESH_MODE
func FromConfig(ctx context.Context, cfg config.Config, httpClient *http.Client) (Exchanger, error) {
	switch mode := cfg.GetRefreshMode(); mode {
	case "json":
		e, err := NewJSONExchanger(cfg.GetAPIBaseURL(), httpClient)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "oauth2":
		e, err := newOAuth2FromConfig(ctx, cfg, httpClient)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, tverrors.Wrapf(tverrors.ErrUnsupported, "[refresh FromConfig] refresh mode %q", mode)
	}
}

func newOAuth2FromConfig(ctx context.Context, cfg config.Config, httpClient *http.Client) (*OAuth2Exchanger, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GetOAuthClientID(),
		ClientSecret: cfg.GetOAuthClientSecret(),
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.GetOAuthTokenURL()},
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
	}

	issuer := cfg.GetOIDCIssuer()
	if issuer == "" {
		if oauthConfig.Endpoint.TokenURL == "" {
			return nil, fmt.Errorf("[refresh FromConfig] %w: OAUTH_TOKEN_URL or OIDC_ISSUER is required", tverrors.ErrInvalidRequest)
		}
		return NewOAuth2Exchanger(oauthConfig, nil, httpClient), nil
	}

	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[refresh FromConfig] failed to create OIDC provider: %w", err)
	}
	if oauthConfig.Endpoint.TokenURL == "" {
		oauthConfig.Endpoint = provider.Endpoint()
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: oauthConfig.ClientID})
	return NewOAuth2Exchanger(oauthConfig, verifier, httpClient), nil
}
