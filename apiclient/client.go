package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/token"
	"github.com/jrsteele09/tradevortex-client/token/refresh"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 5 * time.Second

// Client issues authenticated requests to the backend. On a 401 it refreshes
// the access credential once and replays the request once.
type Client struct {
	baseURL    *url.URL
	store      sessions.Store
	exchanger  refresh.Exchanger
	httpClient *http.Client
	logger     zerolog.Logger

	singleFlight bool
	flights      singleflight.Group

	onSessionExpired func(ctx context.Context)
	observer         func(State, Request)
}

type Option func(*Client)

// WithHTTPClient replaces the default client (5s timeout). nil keeps the default.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithSingleFlight makes concurrent rejected requests share one refresh
// exchange instead of each running their own.
func WithSingleFlight(enabled bool) Option {
	return func(c *Client) { c.singleFlight = enabled }
}

// WithOnSessionExpired is called after the session has been cleared because it
// could not be renewed; the caller sends the user to the login entry point.
func WithOnSessionExpired(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// WithStateObserver reports every protocol transition
func WithStateObserver(fn func(State, Request)) Option {
	return func(c *Client) { c.observer = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, store sessions.Store, exchanger refresh.Exchanger, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[apiclient New] invalid base url: %w", err)
	}
	if store == nil || exchanger == nil {
		return nil, fmt.Errorf("[apiclient New] %w: store and exchanger are required", tverrors.ErrInvalidRequest)
	}
	c := &Client{
		baseURL:    base,
		store:      store,
		exchanger:  exchanger,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store returns the session store the client reads credentials from
func (c *Client) Store() sessions.Store {
	return c.store
}

// Do issues the request. Non-2xx responses are returned, not errors; the
// caller owns the response body. Transport failures wrap tverrors.ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	first := attempt{req: req}
	access, ended := c.attach(ctx)
	resp, err := c.send(ctx, &first, access)
	if err != nil {
		return nil, err
	}
	// A chain that already ended the session has nothing left to refresh
	if resp.StatusCode != http.StatusUnauthorized || first.retried || ended {
		return resp, nil
	}
	return c.recoverUnauthorized(ctx, first, resp)
}

// DoJSON issues the request and decodes a 2xx body into out (which may be nil).
// Other statuses become a *tverrors.APIError.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("[apiclient DoJSON] %w: %w", tverrors.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tverrors.NewAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("[apiclient DoJSON] invalid response from %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

// attach returns the access credential to send, or "" to go unauthenticated.
// It never fails: a storage error or an expired session means no credential.
// ended reports that attach itself cleared an expired session.
func (c *Client) attach(ctx context.Context) (access string, ended bool) {
	session, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read session, sending request unauthenticated")
		return "", false
	}
	if session.Expired(token.NowTimeFunc()) {
		c.logger.Info().Msg("Session expired, clearing")
		c.endSession(ctx)
		return "", true
	}
	return session.AccessToken, false
}

func (c *Client) send(ctx context.Context, a *attempt, accessToken string) (*http.Response, error) {
	httpReq, err := a.req.build(ctx, c.baseURL, accessToken)
	if err != nil {
		return nil, err
	}
	a.sentWith = accessToken

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("[apiclient Do] %s %s: %w: %w", httpReq.Method, a.req.Path, tverrors.ErrTransport, err)
	}
	c.logger.Debug().
		Str("method", httpReq.Method).
		Str("path", a.req.Path).
		Int("status", resp.StatusCode).
		Bool("retried", a.retried).
		Msg("API request")
	return resp, nil
}

// endSession clears the session and fires the expiry hook
func (c *Client) endSession(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear session")
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired(ctx)
	}
}
