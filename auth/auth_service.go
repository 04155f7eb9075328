package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service runs the account operations. It is the only writer of a new
// session; the request layer only renews or clears it.
type Service struct {
	client    *apiclient.Client
	store     sessions.Store
	validator *Validator
	logger    zerolog.Logger
}

// Option defines a function type to modify the Service instance.
type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService writes sessions to the client's store
func NewService(client *apiclient.Client, opts ...Option) *Service {
	s := &Service{
		client:    client,
		store:     client.Store(),
		validator: NewValidator(),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges email and password for credentials, fetches the profile
// with the new access token and stores the session. Backend rejections, e.g.
// 403 for an unverified email, come back as *tverrors.APIError.
func (s *Service) Login(ctx context.Context, email, username, password string) (sessions.Session, error) {
	if err := s.validator.ValidateUserCredentials(email, password); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth Login] %w", err)
	}

	var tokens loginResponse
	req, err := apiclient.NewJSONRequest(http.MethodPost, "token2/", loginRequest{Email: email, Username: username, Password: password})
	if err != nil {
		return sessions.Session{}, err
	}
	if err := s.client.DoJSON(ctx, req, &tokens); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth Login] %w", err)
	}
	if tokens.Access == "" {
		return sessions.Session{}, fmt.Errorf("[auth Login] %w: no access token in response", tverrors.ErrInvalidRequest)
	}

	// The profile call has to carry the new credential, so it is stored first
	session := sessions.Session{AccessToken: tokens.Access, RefreshToken: tokens.Refresh}
	if err := s.store.Set(ctx, session); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth Login] %w", err)
	}
	user, err := s.Profile(ctx)
	if err != nil {
		s.clearQuietly(ctx)
		return sessions.Session{}, fmt.Errorf("[auth Login] fetching profile: %w", err)
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth Login] %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("Logged in")
	return s.store.Get(ctx)
}

// SocialLogin exchanges a provider access token for backend credentials
func (s *Service) SocialLogin(ctx context.Context, provider Provider, providerAccessToken string) (sessions.Session, error) {
	if !provider.Valid() {
		return sessions.Session{}, fmt.Errorf("[auth SocialLogin] %w: %q", tverrors.ErrInvalidProvider, provider)
	}
	if err := s.validator.ValidateAccessToken(providerAccessToken); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth SocialLogin] %w", err)
	}

	req, err := apiclient.NewJSONRequest(http.MethodPost, provider.endpoint(), map[string]string{"access_token": providerAccessToken})
	if err != nil {
		return sessions.Session{}, err
	}
	var resp socialLoginResponse
	if err := s.client.DoJSON(ctx, req, &resp); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth SocialLogin] %s: %w", provider, err)
	}
	if resp.AccessToken == "" {
		return sessions.Session{}, fmt.Errorf("[auth SocialLogin] %w: no access token in response", tverrors.ErrInvalidRequest)
	}

	session := sessions.Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, User: resp.User}
	if err := s.store.Set(ctx, session); err != nil {
		return sessions.Session{}, fmt.Errorf("[auth SocialLogin] %w", err)
	}
	s.logger.Info().Str("provider", string(provider)).Msg("Logged in")
	return s.store.Get(ctx)
}

// Logout forgets the session locally; the backend keeps no login state
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("[auth Logout] %w", err)
	}
	s.logger.Info().Msg("Logged out")
	return nil
}

// Profile fetches the authenticated user
func (s *Service) Profile(ctx context.Context) (*sessions.User, error) {
	var user sessions.User
	if err := s.client.DoJSON(ctx, apiclient.Get("accounts/user-profile/", nil), &user); err != nil {
		return nil, fmt.Errorf("[auth Profile] %w", err)
	}
	return &user, nil
}

// UpdateProfile saves the profile and refreshes the stored identity
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*sessions.User, error) {
	if err := s.validator.ValidateUsername(update.Username); err != nil {
		return nil, fmt.Errorf("[auth UpdateProfile] %w", err)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPut, "accounts/user-profile/update/", update)
	if err != nil {
		return nil, err
	}
	var user sessions.User
	if err := s.client.DoJSON(ctx, req, &user); err != nil {
		return nil, fmt.Errorf("[auth UpdateProfile] %w", err)
	}
	if err := s.store.UpdateUser(ctx, &user); err != nil {
		return nil, fmt.Errorf("[auth UpdateProfile] %w", err)
	}
	return &user, nil
}

func (s *Service) Signup(ctx context.Context, signup SignupRequest) (*SignupResult, error) {
	if err := s.validator.ValidateSignup(signup); err != nil {
		return nil, fmt.Errorf("[auth Signup] %w", err)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, "accounts/signup/", signup)
	if err != nil {
		return nil, err
	}
	var res SignupResult
	if err := s.client.DoJSON(ctx, req, &res); err != nil {
		return nil, fmt.Errorf("[auth Signup] %w", err)
	}
	return &res, nil
}

// Activate follows the emailed activation link
func (s *Service) Activate(ctx context.Context, uid, activationToken string) error {
	if uid == "" || activationToken == "" {
		return fmt.Errorf("[auth Activate] %w", MissingActivationErr)
	}
	req := apiclient.Get("accounts/activate/", url.Values{"uid": {uid}, "token": {activationToken}})
	if err := s.client.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("[auth Activate] %w", err)
	}
	return nil
}

func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	if err := s.validator.ValidateEmail(email); err != nil {
		return false, fmt.Errorf("[auth EmailAvailable] %w", err)
	}
	return s.available(ctx, "accounts/check_email/", map[string]string{"email": email})
}

func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if err := s.validator.ValidateUsername(username); err != nil {
		return false, fmt.Errorf("[auth UsernameAvailable] %w", err)
	}
	return s.available(ctx, "accounts/check_username/", map[string]string{"username": username})
}

func (s *Service) available(ctx context.Context, path string, body map[string]string) (bool, error) {
	req, err := apiclient.NewJSONRequest(http.MethodPost, path, body)
	if err != nil {
		return false, err
	}
	var resp existsResponse
	if err := s.client.DoJSON(ctx, req, &resp); err != nil {
		return false, fmt.Errorf("[auth available] %s: %w", path, err)
	}
	return !resp.Exists, nil
}

func (s *Service) clearQuietly(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear partial session")
	}
}
