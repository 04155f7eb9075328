package config

import (
	"path/filepath"
	"strings"
)

const (
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
	apiBaseURLVar = "API_BASE_URL"
	wsBaseURLVar  = "WS_BASE_URL"
	folderEnvVar  = "FOLDER"
)

type EnvVars struct {
	file values
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.file.get(appNameVar, "TradeVortex")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.file.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return e.file.get(logLevelVar, "info")
}

// GetAPIBaseURL returns the REST base URL; always ends with a slash so that
// relative paths like "board/posts/" resolve under it.
func (e EnvVars) GetAPIBaseURL() string {
	return withTrailingSlash(e.file.get(apiBaseURLVar, "http://127.0.0.1:8000/api/"))
}

func (e EnvVars) GetWSBaseURL() string {
	return withTrailingSlash(e.file.get(wsBaseURLVar, "ws://127.0.0.1:8000/ws/"))
}

func (e EnvVars) GetDataFolder() string {
	return filepath.Clean(e.file.get(folderEnvVar, "./data"))
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
