package config

// OAuthConfig is only consulted when REFRESH_MODE=oauth2, i.e. the backend
// sits behind a standard OAuth2 token endpoint.
type OAuthConfig interface {
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthTokenURL() string
	GetOIDCIssuer() string
}

type OAuth struct {
	file values
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetOAuthClientID() string {
	return o.file.get("OAUTH_CLIENT_ID", "")
}

func (o OAuth) GetOAuthClientSecret() string {
	return o.file.get("OAUTH_CLIENT_SECRET", "")
}

func (o OAuth) GetOAuthTokenURL() string {
	return o.file.get("OAUTH_TOKEN_URL", "")
}

// GetOIDCIssuer enables ID token verification on refresh when set
func (o OAuth) GetOIDCIssuer() string {
	return o.file.get("OIDC_ISSUER", "")
}
