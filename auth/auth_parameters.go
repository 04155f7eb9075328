package auth

import (
	"strings"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
)

// Provider is a social login identity provider. The backend exchanges the
// provider's access token for its own credentials.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderNaver  Provider = "naver"
	ProviderKakao  Provider = "kakao"
)

// ParseProvider accepts google, naver or kakao in any case
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", tverrors.Wrapf(tverrors.ErrInvalidProvider, "[auth ParseProvider] %q", s)
	}
	return p, nil
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderNaver, ProviderKakao:
		return true
	}
	return false
}

func (p Provider) endpoint() string {
	return "accounts/" + string(p) + "/"
}

// SignupRequest registers an account. The backend mails an activation link.
type SignupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// SignupResult is the backend's acknowledgement of a signup
type SignupResult struct {
	Detail string `json:"detail"`
	UID    string `json:"uid,omitempty"`
}

// ProfileUpdate is the editable part of the user profile
type ProfileUpdate struct {
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Password login answers {access, refresh}
type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Social login answers {access_token, refresh_token, user}
type socialLoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *sessions.User `json:"user"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}
