package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type SessionConfig interface {
	GetRequestTimeout() time.Duration
	GetSingleFlightRefresh() bool
	GetRefreshMode() string
	GetLoginPath() string
}

type Session struct {
	file values
}

var _ SessionConfig = Session{}

func (s Session) GetRequestTimeout() time.Duration {
	raw := s.file.get("REQUEST_TIMEOUT", "5s")
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("value", raw).Msg("Invalid REQUEST_TIMEOUT, using 5s")
		return 5 * time.Second
	}
	return d
}

// GetSingleFlightRefresh makes concurrent rejected requests share one refresh
// exchange. Off by default: each rejected request refreshes on its own.
func (s Session) GetSingleFlightRefresh() bool {
	v, err := strconv.ParseBool(s.file.get("SINGLE_FLIGHT_REFRESH", "false"))
	return err == nil && v
}

// GetRefreshMode is "json" (token/refresh/ endpoint) or "oauth2"
func (s Session) GetRefreshMode() string {
	return strings.ToLower(s.file.get("REFRESH_MODE", "json"))
}

// GetLoginPath is the unauthenticated entry point reported when a session ends
func (s Session) GetLoginPath() string {
	return s.file.get("LOGIN_PATH", "/login")
}
