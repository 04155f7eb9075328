package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/tradevortex-client/internal/config"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/storage"
	"github.com/jrsteele09/tradevortex-client/storage/memory"
	"github.com/jrsteele09/tradevortex-client/storage/redis"
	"github.com/jrsteele09/tradevortex-client/storage/sqlite"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the same behaviour checks against every backend
func exerciseKV(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "accessToken")
	require.ErrorIs(t, err, tverrors.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "accessToken", "A1"))
	require.NoError(t, kv.Set(ctx, "refreshToken", "R1"))
	v, err := kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.Equal(t, "A1", v)

	require.NoError(t, kv.Set(ctx, "accessToken", "A2"))
	v, err = kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.Equal(t, "A2", v)

	require.NoError(t, kv.Delete(ctx, "accessToken", "refreshToken", "never-set"))
	_, err = kv.Get(ctx, "accessToken")
	require.ErrorIs(t, err, tverrors.ErrNotFound)
	_, err = kv.Get(ctx, "refreshToken")
	require.ErrorIs(t, err, tverrors.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := memory.NewStore()
	exerciseKV(t, s)
	require.Equal(t, 0, s.Len())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	exerciseKV(t, s)

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	require.NoError(t, s.Close())

	// Values survive reopening the file
	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "dark", v)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := redis.Open(context.Background(), addr, "", "tradevortex-test:")
	require.NoError(t, err)
	defer s.Close()
	exerciseKV(t, s)
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	kv, err := storage.Open(context.Background(), config.New())
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, kv)

	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "kv.db"))
	kv, err = storage.Open(context.Background(), config.New())
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, kv)
	require.NoError(t, kv.Close())

	t.Setenv("STORAGE_BACKEND", "floppy")
	_, err = storage.Open(context.Background(), config.New())
	require.ErrorIs(t, err, tverrors.ErrUnsupported)
}
