// Package fakebackend is an in-process stand-in for the TradeVortex backend,
// reproducing its auth surface (simplejwt style tokens with rotation) and its
// WebSocket channels so the client can be tested end to end.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type Account struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash []byte
	Verified     bool
}

type Option func(*Backend)

// WithoutRotation makes refresh return only a new access token
func WithoutRotation() Option {
	return func(b *Backend) { b.rotate = false }
}

// WithoutBlacklist lets a rotated refresh token be used again
func WithoutBlacklist() Option {
	return func(b *Backend) { b.blacklist = false }
}

func WithAccessTTL(d time.Duration) Option {
	return func(b *Backend) { b.accessTTL = d }
}

type Backend struct {
	server *httptest.Server
	router *mux.Router
	api    *mux.Router
	secret []byte

	mu          sync.Mutex
	accounts    map[int64]*Account
	nextID      int64
	blacklisted map[string]bool // refresh jti
	revoked     map[string]bool // access jti
	authHeaders map[string][]string
	rejectAll   bool

	rotate     bool
	blacklist  bool
	accessTTL  time.Duration
	refreshTTL time.Duration

	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
	barrier      *barrier

	hub *hub
}

// New starts the backend and stops it when the test ends
func New(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := &Backend{
		router:      mux.NewRouter(),
		secret:      []byte("fake-backend-" + uuid.NewString()),
		accounts:    make(map[int64]*Account),
		nextID:      1,
		blacklisted: make(map[string]bool),
		revoked:     make(map[string]bool),
		authHeaders: make(map[string][]string),
		rotate:      true,
		blacklist:   true,
		accessTTL:   5 * time.Minute,
		refreshTTL:  30 * 24 * time.Hour,
		hub:         newHub(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.api = b.router.PathPrefix("/api").Subrouter()
	b.initAuthRoutes()
	b.initWebSocketRoutes()

	b.server = httptest.NewServer(b.router)
	t.Cleanup(func() {
		b.hub.closeAll()
		b.server.Close()
	})
	return b
}

// APIBaseURL is the REST root, ending with a slash
func (b *Backend) APIBaseURL() string {
	return b.server.URL + "/api/"
}

// WSBaseURL is the WebSocket root, ending with a slash
func (b *Backend) WSBaseURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws/"
}

// AddUser registers a verified account and returns its ID
func (b *Backend) AddUser(email, username, password string) int64 {
	return b.addAccount(email, username, password, true)
}

func (b *Backend) addAccount(email, username, password string, verified bool) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.accounts[id] = &Account{ID: id, Email: email, Username: username, PasswordHash: hash, Verified: verified}
	return id
}

// IssueTokens mints an access/refresh pair for a user without a login call
func (b *Backend) IssueTokens(userID int64) (access, refresh string) {
	access = b.mint(userID, "access", b.accessTTL)
	refresh = b.mint(userID, "refresh", b.refreshTTL)
	return access, refresh
}

// MintExpiredAccess returns an access token whose exp has already passed
func (b *Backend) MintExpiredAccess(userID int64) string {
	return b.mint(userID, "access", -time.Minute)
}

// MintExpiredRefresh returns a refresh token whose exp has already passed
func (b *Backend) MintExpiredRefresh(userID int64) string {
	return b.mint(userID, "refresh", -time.Minute)
}

// RevokeAccess makes the backend answer 401 to a currently valid access token
func (b *Backend) RevokeAccess(access string) {
	claims, err := b.parse(access, "access", true)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[claims.ID] = true
}

// RejectAll makes every protected endpoint answer 401 regardless of the token
func (b *Backend) RejectAll(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectAll = reject
}

// HoldRefresh makes each refresh call wait until n calls are in flight (or
// the timeout passes), proving the calls overlapped.
func (b *Backend) HoldRefresh(n int, timeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.barrier = newBarrier(n, timeout)
}

func (b *Backend) RefreshCalls() int64 { return b.refreshCalls.Load() }
func (b *Backend) LoginCalls() int64   { return b.loginCalls.Load() }

// AuthHeaders lists the Authorization headers seen by a protected route path, in order
func (b *Backend) AuthHeaders(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders[path]...)
}

type tokenClaims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwtlib.RegisteredClaims
}

func (b *Backend) mint(userID int64, tokenType string, ttl time.Duration) string {
	now := NowTimeFunc()
	claims := tokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Backend) parse(raw, tokenType string, allowRevoked bool) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.secret, nil
	}, jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("wrong token type %q", claims.TokenType)
	}
	if !allowRevoked {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.revoked[claims.ID] || b.blacklisted[claims.ID] {
			return nil, fmt.Errorf("token is blacklisted")
		}
	}
	return claims, nil
}

// Handle registers a route under /api/ that requires a valid bearer token
func (b *Backend) Handle(method, path string, handler func(w http.ResponseWriter, r *http.Request, user *Account)) {
	b.api.HandleFunc(path, b.protected(handler)).Methods(method)
}

// HandlePublic registers a route under /api/ with no authentication
func (b *Backend) HandlePublic(method, path string, handler http.HandlerFunc) {
	b.api.HandleFunc(path, handler).Methods(method)
}

func (b *Backend) protected(next func(http.ResponseWriter, *http.Request, *Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		b.mu.Lock()
		b.authHeaders[r.URL.Path] = append(b.authHeaders[r.URL.Path], header)
		rejectAll := b.rejectAll
		b.mu.Unlock()

		if rejectAll {
			tokenNotValid(w)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		claims, err := b.parse(raw, "access", false)
		if err != nil {
			tokenNotValid(w)
			return
		}
		b.mu.Lock()
		account, ok := b.accounts[claims.UserID]
		b.mu.Unlock()
		if !ok {
			tokenNotValid(w)
			return
		}
		next(w, r, account)
	}
}

func tokenNotValid(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type barrier struct {
	mu      sync.Mutex
	arrived int
	n       int
	release chan struct{}
	timeout time.Duration
}

func newBarrier(n int, timeout time.Duration) *barrier {
	return &barrier{n: n, release: make(chan struct{}), timeout: timeout}
}

func (br *barrier) wait() {
	br.mu.Lock()
	br.arrived++
	if br.arrived == br.n {
		close(br.release)
	}
	br.mu.Unlock()

	select {
	case <-br.release:
	case <-time.After(br.timeout):
	}
}
