package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/token/refresh"
)

// State of the refresh-on-rejection protocol for one request chain
type State int

const (
	StateNormal State = iota
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateRefreshing:
		return "REFRESHING"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (c *Client) transition(to State, req Request) {
	c.logger.Debug().Str("state", to.String()).Str("method", req.Method).Str("path", req.Path).Msg("Refresh protocol")
	if c.observer != nil {
		c.observer(to, req)
	}
}

// recoverUnauthorized runs NORMAL -> REFRESHING -> NORMAL|FAILED for a first
// attempt that came back 401. On failure the caller gets the original 401.
func (c *Client) recoverUnauthorized(ctx context.Context, first attempt, rejected *http.Response) (*http.Response, error) {
	c.transition(StateRefreshing, first.req)
	if err := bufferBody(rejected); err != nil {
		return nil, fmt.Errorf("[apiclient Do] %w: %w", tverrors.ErrTransport, err)
	}

	session, err := c.store.Get(ctx)
	if err != nil {
		return c.fail(ctx, first, rejected, err)
	}
	if endedElsewhere(session, first.sentWith) {
		return c.abandon(first, rejected)
	}
	if session.RefreshToken == "" {
		return c.fail(ctx, first, rejected, tverrors.ErrNoRefreshToken)
	}

	access, err := c.renew(ctx, session.RefreshToken, first.sentWith)
	if err != nil {
		if tverrors.Is(err, tverrors.ErrSessionExpired) {
			return c.abandon(first, rejected)
		}
		if tverrors.Is(err, errPersist) {
			// The exchange succeeded, so the session is not cleared
			c.transition(StateFailed, first.req)
			rejected.Body.Close()
			return nil, err
		}
		return c.fail(ctx, first, rejected, err)
	}

	c.transition(StateNormal, first.req)
	rejected.Body.Close()
	replay := first.retry()
	return c.send(ctx, &replay, access)
}

func (c *Client) fail(ctx context.Context, first attempt, rejected *http.Response, cause error) (*http.Response, error) {
	c.transition(StateFailed, first.req)
	c.logger.Warn().Err(cause).Str("path", first.req.Path).Msg("Session could not be refreshed, logging out")
	c.endSession(ctx)
	return rejected, nil
}

// abandon fails a chain whose session another request already ended; the
// expiry hook has fired once for that session and does not fire again.
func (c *Client) abandon(first attempt, rejected *http.Response) (*http.Response, error) {
	c.transition(StateFailed, first.req)
	c.logger.Debug().Str("path", first.req.Path).Msg("Session ended by a concurrent request")
	return rejected, nil
}

// endedElsewhere is true when the request carried a credential but the
// session has since been cleared
func endedElsewhere(current sessions.Session, sentWith string) bool {
	return sentWith != "" && !current.Authenticated() && current.RefreshToken == ""
}

var errPersist = errors.New("failed to persist refreshed session")

// renew returns the access credential to replay with
func (c *Client) renew(ctx context.Context, refreshToken, sentWith string) (string, error) {
	if !c.singleFlight {
		return c.exchange(ctx, refreshToken)
	}

	// Keyed by the rejected credential: every request rejected with it joins
	// one flight, and a flight started after another finished sees the renewed
	// session and skips the exchange.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := c.flights.Do(sentWith, func() (any, error) {
		current, err := c.store.Get(flightCtx)
		if err != nil {
			return "", err
		}
		if endedElsewhere(current, sentWith) {
			return "", tverrors.ErrSessionExpired
		}
		if current.AccessToken != "" && current.AccessToken != sentWith {
			return current.AccessToken, nil
		}
		if current.RefreshToken == "" {
			return "", tverrors.ErrNoRefreshToken
		}
		return c.exchange(flightCtx, current.RefreshToken)
	})
	if shared {
		c.logger.Debug().Msg("Shared in-flight refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	res, err := c.exchanger.Exchange(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if err := c.persist(ctx, res); err != nil {
		return "", fmt.Errorf("[apiclient refresh] %w: %w", errPersist, err)
	}
	return res.AccessToken, nil
}

func (c *Client) persist(ctx context.Context, res *refresh.Result) error {
	if err := c.store.UpdateAccess(ctx, res.AccessToken, res.RefreshToken); err != nil {
		return err
	}
	if res.User != nil {
		return c.store.UpdateUser(ctx, res.User)
	}
	return nil
}

// bufferBody reads the body into memory so it stays readable after further requests
func bufferBody(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return nil
}
