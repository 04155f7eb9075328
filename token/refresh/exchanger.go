package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/sessions"
)

// Result of a successful refresh exchange
type Result struct {
	AccessToken  string
	RefreshToken string         // Empty when the backend did not rotate the refresh token
	User         *sessions.User // Set only when the exchange also returned identity
}

// Exchanger trades a refresh credential for a new access credential.
// A rejected credential returns an error wrapping tverrors.ErrRefreshRejected,
// a network failure one wrapping tverrors.ErrTransport.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*Result, error)
}

// JSONExchanger calls the backend's simplejwt refresh endpoint:
// POST token/refresh/ {"refresh": R} -> {"access": A, "refresh": R2}
type JSONExchanger struct {
	endpoint   string
	httpClient *http.Client
}

var _ Exchanger = (*JSONExchanger)(nil)

// NewJSONExchanger resolves token/refresh/ against baseURL. httpClient must not
// be the interceptor's client: a rejected refresh must not trigger a refresh.
func NewJSONExchanger(baseURL string, httpClient *http.Client) (*JSONExchanger, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[refresh NewJSONExchanger] invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &JSONExchanger{
		endpoint:   base.ResolveReference(&url.URL{Path: "token/refresh/"}).String(),
		httpClient: httpClient,
	}, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (e *JSONExchanger) Exchange(ctx context.Context, refreshToken string) (*Result, error) {
	if refreshToken == "" {
		return nil, tverrors.ErrNoRefreshToken
	}
	body, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("[refresh Exchange] %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[refresh Exchange] %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[refresh Exchange] %w: %w", tverrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[refresh Exchange] %w: %w", tverrors.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("[refresh Exchange] %w: %w", tverrors.ErrRefreshRejected, tverrors.NewAPIError(resp.StatusCode, raw))
	}

	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("[refresh Exchange] invalid response: %w", err)
	}
	if out.Access == "" {
		return nil, fmt.Errorf("[refresh Exchange] %w: response has no access token", tverrors.ErrRefreshRejected)
	}
	return &Result{AccessToken: out.Access, RefreshToken: out.Refresh}, nil
}
