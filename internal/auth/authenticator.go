// Package auth implements API-key authentication with bcrypt verification,
// a time-bounded in-process cache, and scope checks.
package auth

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
)

// DefaultTTL is how long a verified key stays in the cache.
const DefaultTTL = 5 * time.Minute

// touchTimeout bounds the detached last-used update.
const touchTimeout = 5 * time.Second

// KeyStore is the persistence surface the authenticator needs.
type KeyStore interface {
	// ActiveAPIKeys returns every key whose expiry is unset or in the
	// future, in a deterministic order.
	ActiveAPIKeys(ctx context.Context) ([]models.APIKey, error)
	// TouchAPIKeyLastUsed records a successful use of the key.
	TouchAPIKeyLastUsed(ctx context.Context, id string) error
}

// Context is the result of a successful authentication.
type Context struct {
	TenantID string
	KeyID    string
	Scopes   []string
}

type cacheEntry struct {
	authCtx   Context
	expiresAt time.Time
}

// Authenticator validates raw API keys against stored bcrypt hashes. A
// verified key is cached by its raw value for the TTL so the fast path
// performs no hashing and no I/O. The cache is shared mutable state; a
// benign race that costs one extra verification pass is acceptable, but
// the map itself is mutex-guarded.
type Authenticator struct {
	keys   KeyStore
	verify func(raw, hash string) bool
	logger *slog.Logger
	now    func() time.Time
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry

	// wg tracks detached last-used updates so tests can drain them.
	wg sync.WaitGroup
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithTTL overrides the cache TTL.
func WithTTL(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithVerifier overrides the hash verification primitive. For tests.
func WithVerifier(fn func(raw, hash string) bool) Option {
	return func(a *Authenticator) { a.verify = fn }
}

// WithLogger sets the logger used for best-effort failure reporting.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// New creates an Authenticator backed by the given key store.
func New(keys KeyStore, opts ...Option) *Authenticator {
	a := &Authenticator{
		keys:   keys,
		verify: bcryptVerify,
		logger: slog.Default(),
		now:    time.Now,
		ttl:    DefaultTTL,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// bcryptVerify is the default constant-time verification primitive. Any
// error (mismatch, malformed hash, library fault) means "no match".
func bcryptVerify(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// Authenticate validates rawKey and returns the authenticated context.
// Missing key, expired key, and infrastructure failure during lookup are
// all reported as the same not-authenticated outcome: callers can never
// tell a wrong key from an unreachable backend.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*Context, bool) {
	if rawKey == "" {
		return nil, false
	}

	now := a.now()
	a.mu.Lock()
	if e, ok := a.cache[rawKey]; ok {
		if now.Before(e.expiresAt) {
			a.mu.Unlock()
			out := e.authCtx
			return &out, true
		}
		// Stale entries are never trusted; treat exactly like a miss.
		delete(a.cache, rawKey)
	}
	a.mu.Unlock()

	keys, err := a.keys.ActiveAPIKeys(ctx)
	if err != nil {
		a.logger.Warn("api key lookup failed", slog.String("error", err.Error()))
		return nil, false
	}

	for _, k := range keys {
		if !a.verify(rawKey, k.KeyHash) {
			continue
		}
		authCtx := Context{
			TenantID: k.TenantID,
			KeyID:    k.ID,
			Scopes:   slices.Clone(k.Scopes),
		}
		a.mu.Lock()
		a.cache[rawKey] = cacheEntry{authCtx: authCtx, expiresAt: now.Add(a.ttl)}
		a.mu.Unlock()
		a.touchAsync(k.ID)
		out := authCtx
		return &out, true
	}

	return nil, false
}

// touchAsync schedules the last-used timestamp update without blocking the
// caller. Failures are logged and discarded.
func (a *Authenticator) touchAsync(id string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := a.keys.TouchAPIKeyLastUsed(ctx, id); err != nil {
			a.logger.Warn("api key last-used update failed",
				slog.String("key_id", id),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until all detached last-used updates have finished. For
// tests and shutdown.
func (a *Authenticator) Wait() {
	a.wg.Wait()
}

// HasScope reports whether c grants the required scope: literal membership,
// or the admin scope which implies every other scope. Pure, no I/O.
func HasScope(c *Context, required string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Scopes, required) || slices.Contains(c.Scopes, models.ScopeAdmin)
}
