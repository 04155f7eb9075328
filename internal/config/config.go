package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	StorageConfig
	SessionConfig
	OAuthConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetWSBaseURL() string
	GetDataFolder() string
}

type mainConfig struct {
	EnvVars
	Storage
	Session
	OAuth
}

// New returns a Config backed by environment variables and defaults only.
func New() Config {
	return newConfig(values{})
}

// Load reads an optional .env file and an optional TOML file, then returns a
// Config where environment variables take precedence over the file, and the
// file over defaults. Missing files are not an error.
func Load(tomlPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config Load] failed to load .env: %w", err)
	}

	file := values{}
	if tomlPath != "" {
		raw := map[string]any{}
		if _, err := toml.DecodeFile(tomlPath, &raw); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("[config Load] failed to decode %s: %w", tomlPath, err)
			}
		}
		for k, v := range raw {
			file[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}
	return newConfig(file), nil
}

func newConfig(file values) Config {
	return mainConfig{
		EnvVars: EnvVars{file},
		Storage: Storage{file},
		Session: Session{file},
		OAuth:   OAuth{file},
	}
}

// values holds settings read from the config file, keyed by env var name
type values map[string]string

func (v values) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := v[key]; ok && value != "" {
		return value
	}
	return defaultValue
}
