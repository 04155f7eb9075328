package storage

import (
	"context"

	"github.com/jrsteele09/tradevortex-client/internal/config"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/storage/memory"
	"github.com/jrsteele09/tradevortex-client/storage/redis"
	"github.com/jrsteele09/tradevortex-client/storage/sqlite"
)

// KV is persisted key/value storage holding the session and UI preferences.
// Get returns tverrors.ErrNotFound for an absent key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

var (
	_ KV = (*memory.Store)(nil)
	_ KV = (*sqlite.Store)(nil)
	_ KV = (*redis.Store)(nil)
)

// Open returns the backend selected by the configuration
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch backend := cfg.GetStorageBackend(); backend {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := redis.Open(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisPrefix())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, tverrors.Wrapf(tverrors.ErrUnsupported, "[storage Open] backend %q", backend)
	}
}
