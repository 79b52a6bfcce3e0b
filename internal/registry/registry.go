// Package registry maps access tokens to their UserStore.
// Entries are evicted least-recently-used beyond capacity and after an idle TTL.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/robby/leander/internal/store"
)

const (
	DefaultSize = 100
	DefaultTTL  = 7 * 24 * time.Hour
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *store.UserStore]
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for eviction events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a registry holding at most size stores, each expiring after ttl without access.
func New(size int, ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = expirable.NewLRU[string, *store.UserStore](size, r.onEvict, ttl)
	return r
}

// onEvict runs under the cache's lock and must not call back into it.
func (r *Registry) onEvict(_ string, s *store.UserStore) {
	stats := s.Snapshot()
	r.logger.Debug("store evicted",
		slog.String("viewer", stats.Viewer),
		slog.Int("repositories", stats.Repositories),
		slog.Int("issues", stats.Issues),
	)
}

// Get returns the token's store and refreshes its idle deadline.
func (r *Registry) Get(token string) (*store.UserStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(token)
}

func (r *Registry) get(token string) (*store.UserStore, bool) {
	s, ok := r.cache.Get(token)
	if ok {
		// expirable.LRU.Get does not extend the TTL; re-adding does.
		r.cache.Add(token, s)
	}
	return s, ok
}

// Set stores s under token, evicting the least recently used store when full.
func (r *Registry) Set(token string, s *store.UserStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(token, s)
}

// GetOrCreate returns the token's store, building and registering one with build on a miss.
func (r *Registry) GetOrCreate(token string, build func() *store.UserStore) *store.UserStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.get(token); ok {
		return s
	}
	s := build()
	r.cache.Add(token, s)
	return s
}

// Remove drops the token's store.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(token)
}

// Stores returns a snapshot of the live stores without touching their recency.
func (r *Registry) Stores() []*store.UserStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Values()
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
