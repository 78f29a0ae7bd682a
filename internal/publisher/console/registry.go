package console

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Registry keeps one Workspace per operator session. Idle workspaces expire after the
// configured TTL and the least recently used one is dropped when the registry is full.
type Registry struct {
	mu       sync.Mutex
	cache    *expirable.LRU[string, *Workspace]
	factory  func() *Workspace
	observer func(int)
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithSizeObserver is called with the number of live workspaces whenever it may have changed.
func WithSizeObserver(fn func(int)) RegistryOption {
	return func(r *Registry) {
		r.observer = fn
	}
}

// NewRegistry constructs a registry holding at most size workspaces for ttl each. factory
// builds the workspace for a session seen for the first time.
func NewRegistry(size int, ttl time.Duration, factory func() *Workspace, opts ...RegistryOption) *Registry {
	if factory == nil {
		factory = func() *Workspace { return New(nil) }
	}
	r := &Registry{factory: factory}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.cache = expirable.NewLRU[string, *Workspace](size, func(string, *Workspace) {
		// runs under the cache lock
		go r.report()
	}, ttl)
	return r
}

// Get returns the workspace for sessionID, creating it when needed. Each access renews the
// workspace's TTL.
func (r *Registry) Get(sessionID string) *Workspace {
	sessionID = strings.TrimSpace(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.cache.Get(sessionID)
	if !ok || ws == nil {
		ws = r.factory()
	}
	r.cache.Add(sessionID, ws)
	r.reportLocked()
	return ws
}

// Drop discards the workspace for sessionID, typically on logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(strings.TrimSpace(sessionID))
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) report() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reportLocked()
}

func (r *Registry) reportLocked() {
	if r.observer != nil {
		r.observer(r.cache.Len())
	}
}
