package memory

import (
	"context"
	"sync"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

// Store is a thread-safe in-memory key/value store. Nothing survives the process.
type Store struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", tverrors.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.values[key] = value
	return nil
}

// Delete removes the keys; absent keys are ignored
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len is the number of stored keys
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
