package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

// Keys used in persisted storage
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
	UserKey         = "user"
)

// KV is the subset of storage.KV the session needs
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// PersistedStore keeps the session in persisted key/value storage with an
// in-memory copy. Storage is the source of truth; the copy is loaded on first
// use and written through on every change.
type PersistedStore struct {
	kv     KV
	lock   sync.RWMutex
	loaded bool
	cached Session
}

var _ Store = (*PersistedStore)(nil)

func NewPersistedStore(kv KV) *PersistedStore {
	return &PersistedStore{kv: kv}
}

func (p *PersistedStore) Get(ctx context.Context) (Session, error) {
	p.lock.RLock()
	if p.loaded {
		s := p.cached
		p.lock.RUnlock()
		return s, nil
	}
	p.lock.RUnlock()

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.loaded {
		return p.cached, nil
	}
	s, err := p.load(ctx)
	if err != nil {
		return Session{}, err
	}
	p.cached = s
	p.loaded = true
	return s, nil
}

func (p *PersistedStore) load(ctx context.Context) (Session, error) {
	var s Session
	var err error

	if s.AccessToken, err = p.optional(ctx, AccessTokenKey); err != nil {
		return Session{}, err
	}
	if s.RefreshToken, err = p.optional(ctx, RefreshTokenKey); err != nil {
		return Session{}, err
	}
	rawUser, err := p.optional(ctx, UserKey)
	if err != nil {
		return Session{}, err
	}
	if rawUser != "" && rawUser != "null" {
		var u User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			return Session{}, fmt.Errorf("[sessions load] corrupt user entry: %w", err)
		}
		s.User = &u
	}
	return s, nil
}

func (p *PersistedStore) optional(ctx context.Context, key string) (string, error) {
	v, err := p.kv.Get(ctx, key)
	if tverrors.Is(err, tverrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[sessions load] %s: %w", key, err)
	}
	return v, nil
}

func (p *PersistedStore) Set(ctx context.Context, session Session) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.kv.Set(ctx, AccessTokenKey, session.AccessToken); err != nil {
		return fmt.Errorf("[sessions Set] %w", err)
	}
	if session.RefreshToken != "" {
		if err := p.kv.Set(ctx, RefreshTokenKey, session.RefreshToken); err != nil {
			return fmt.Errorf("[sessions Set] %w", err)
		}
	} else if p.loaded {
		session.RefreshToken = p.cached.RefreshToken
	} else {
		// Not loaded yet: the stored refresh token survives, so pick it up
		rt, err := p.optional(ctx, RefreshTokenKey)
		if err != nil {
			return err
		}
		session.RefreshToken = rt
	}
	if err := p.writeUser(ctx, session.User); err != nil {
		return err
	}

	p.cached = session
	p.loaded = true
	return nil
}

// UpdateAccess only mutates an existing session. Once the session has been
// cleared (logout, or another request's failed refresh) it returns
// tverrors.ErrSessionExpired rather than writing credentials back.
func (p *PersistedStore) UpdateAccess(ctx context.Context, access, refresh string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.loaded {
		s, err := p.load(ctx)
		if err != nil {
			return err
		}
		p.cached = s
		p.loaded = true
	}
	if !p.cached.Authenticated() && p.cached.RefreshToken == "" {
		return fmt.Errorf("[sessions UpdateAccess] %w", tverrors.ErrSessionExpired)
	}

	if err := p.kv.Set(ctx, AccessTokenKey, access); err != nil {
		return fmt.Errorf("[sessions UpdateAccess] %w", err)
	}
	p.cached.AccessToken = access
	if refresh != "" {
		if err := p.kv.Set(ctx, RefreshTokenKey, refresh); err != nil {
			return fmt.Errorf("[sessions UpdateAccess] %w", err)
		}
		p.cached.RefreshToken = refresh
	}
	return nil
}

func (p *PersistedStore) UpdateUser(ctx context.Context, user *User) error {
	if _, err := p.Get(ctx); err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.writeUser(ctx, user); err != nil {
		return err
	}
	p.cached.User = user
	return nil
}

func (p *PersistedStore) writeUser(ctx context.Context, user *User) error {
	if user == nil {
		if err := p.kv.Delete(ctx, UserKey); err != nil {
			return fmt.Errorf("[sessions writeUser] %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("[sessions writeUser] %w", err)
	}
	if err := p.kv.Set(ctx, UserKey, string(raw)); err != nil {
		return fmt.Errorf("[sessions writeUser] %w", err)
	}
	return nil
}

func (p *PersistedStore) Clear(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.kv.Delete(ctx, AccessTokenKey, RefreshTokenKey, UserKey); err != nil {
		return fmt.Errorf("[sessions Clear] %w", err)
	}
	p.cached = Session{}
	p.loaded = true
	return nil
}

// Invalidate drops the in-memory copy so the next Get re-reads storage,
// e.g. after another process logged in with the same storage.
func (p *PersistedStore) Invalidate() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.loaded = false
	p.cached = Session{}
}
