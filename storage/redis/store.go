package redis

import (
	"context"
	"errors"
	"fmt"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Store keeps values in Redis under a key prefix, so several clients can
// share one Redis without colliding.
type Store struct {
	client *goredis.Client
	prefix string
}

// Open connects and pings; an unreachable Redis is an error
func Open(ctx context.Context, addr, password, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[redis Open] could not connect to %s: %w", addr, err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", tverrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[redis Get] %s: %w", key, err)
	}
	return v, nil
}

// Set stores without expiry; session lifetime is decided by the credentials
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("[redis Set] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("[redis Delete] %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
