package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error types for the TradeVortex client
var (
	// Authentication errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrRefreshRejected = errors.New("refresh token rejected")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidProvider = errors.New("invalid social login provider")

	// Transport errors
	ErrTransport = errors.New("transport failure")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnsupported    = errors.New("unsupported operation")
)

// APIError is a non-2xx response from the backend. Validation and business
// errors are passed through to the caller as-is.
type APIError struct {
	Status int
	Body   []byte
	Detail string
}

// NewAPIError builds an APIError, pulling a human readable message out of the
// common "detail"/"error"/"message" fields of the backend's JSON error body.
func NewAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: body}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, k := range []string{"detail", "error", "message"} {
			if s, ok := fields[k].(string); ok && s != "" {
				e.Detail = s
				break
			}
		}
	}
	if e.Detail == "" {
		e.Detail = strings.TrimSpace(http.StatusText(status))
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401 APIError
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
