package auth

import (
	"fmt"
	"strings"
)

// Validator checks requests before they are sent, so obvious mistakes do
// not cost a round trip. The backend remains the authority.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return MissingCredentialsErr
	}
	return v.ValidateEmail(email)
}

// ValidateEmail is a shape check only: something@domain.tld
func (v *Validator) ValidateEmail(email string) error {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: %q", InvalidEmailErr, email)
	}
	return nil
}

func (v *Validator) ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return InvalidUsernameErr
	}
	return nil
}

// ValidateSignup validates the signup form
func (v *Validator) ValidateSignup(req SignupRequest) error {
	if err := v.ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := v.ValidateUsername(req.Username); err != nil {
		return err
	}
	if req.Password1 == "" {
		return MissingCredentialsErr
	}
	if req.Password1 != req.Password2 {
		return UserPasswordsDontMatchErr
	}
	return nil
}

// ValidateAccessToken checks a provider token is present. Provider tokens are
// opaque, unlike the backend's own credentials.
func (v *Validator) ValidateAccessToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}
