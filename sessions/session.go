package sessions

import (
	"context"
	"time"

	"github.com/jrsteele09/tradevortex-client/token"
)

// User is the identity of the logged in user as returned by accounts/user-profile/
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the authentication state: credentials plus user identity.
// The zero Session is "logged out".
type Session struct {
	AccessToken  string // Bearer credential attached to every request
	RefreshToken string // Optional; exchanged for a new AccessToken on 401
	User         *User
}

// Authenticated reports whether there is an access credential to attach
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Expired is true when the session can no longer be used or renewed:
// the refresh credential has lapsed, or there is none and the access
// credential has lapsed. Opaque credentials never expire client-side.
func (s Session) Expired(now time.Time) bool {
	if s.RefreshToken != "" {
		exp, ok := token.ParseExpiry(s.RefreshToken)
		return ok && !now.Before(exp)
	}
	if s.AccessToken == "" {
		return false
	}
	exp, ok := token.ParseExpiry(s.AccessToken)
	return ok && !now.Before(exp)
}

// Store owns the session. The request layer is given a Store rather than
// reading persisted storage itself.
type Store interface {
	// Get returns the zero Session when nothing is stored
	Get(ctx context.Context) (Session, error)

	// Set replaces the session. An empty RefreshToken leaves any stored one in place.
	Set(ctx context.Context, session Session) error

	// UpdateAccess replaces the access credential, and the refresh credential
	// only when refresh is not empty (the backend rotated it). It returns
	// ErrSessionExpired when there is no session left to update.
	UpdateAccess(ctx context.Context, access, refresh string) error

	// UpdateUser replaces the stored identity
	UpdateUser(ctx context.Context, user *User) error

	// Clear removes the access credential, refresh credential and identity
	Clear(ctx context.Context) error
}
