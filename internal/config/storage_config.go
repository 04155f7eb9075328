package config

import (
	"path/filepath"
	"strings"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
}

type Storage struct {
	file values
}

var _ StorageConfig = Storage{}

// GetStorageBackend is one of "memory", "sqlite" or "redis"
func (s Storage) GetStorageBackend() string {
	return strings.ToLower(s.file.get("STORAGE_BACKEND", "sqlite"))
}

func (s Storage) GetSQLitePath() string {
	folder := EnvVars(s).GetDataFolder()
	return s.file.get("SQLITE_PATH", filepath.Join(folder, "tradevortex.db"))
}

func (s Storage) GetRedisAddr() string {
	return s.file.get("REDIS_ADDR", "localhost:6379")
}

func (s Storage) GetRedisPassword() string {
	return s.file.get("REDIS_PASSWORD", "")
}

func (s Storage) GetRedisPrefix() string {
	return s.file.get("REDIS_PREFIX", "tradevortex:")
}
