package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes an API call independently of any one http.Request, so
// the same call can be rebuilt with a new credential and re-issued.
type Request struct {
	Method string
	Path   string // Relative to the API base URL, e.g. "board/posts/"
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Get builds a GET request with optional query parameters
func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query}
}

// Delete builds a DELETE request
func Delete(path string) Request {
	return Request{Method: http.MethodDelete, Path: path}
}

// NewJSONRequest marshals v as the request body
func NewJSONRequest(method, path string, v any) (Request, error) {
	req := Request{Method: method, Path: path, Header: http.Header{}}
	if v != nil {
		body, err := json.Marshal(v)
		if err != nil {
			return Request{}, fmt.Errorf("[apiclient NewJSONRequest] %w", err)
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// attempt is one issue of a Request. Only retry() produces a retried attempt,
// and it is the only way the client re-issues, so a request is replayed at most once.
type attempt struct {
	req      Request
	retried  bool
	sentWith string // access credential attached on this attempt
}

func (a attempt) retry() attempt {
	return attempt{req: a.req, retried: true}
}

// build resolves the path against base and attaches the bearer credential if any
func (r Request) build(ctx context.Context, base *url.URL, accessToken string) (*http.Request, error) {
	// Leading slashes are relative to the API root, as with the browser client
	ref := &url.URL{Path: strings.TrimLeft(r.Path, "/")}
	if len(r.Query) > 0 {
		ref.RawQuery = r.Query.Encode()
	}
	target := base.ResolveReference(ref)

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient build] %w", err)
	}
	for k, values := range r.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return httpReq, nil
}
