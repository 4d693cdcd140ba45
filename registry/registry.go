// Package registry keeps the set of installed completion providers.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rlch/completer"
)

// Registry maps provider IDs to providers. Providers keep the position of
// their first registration; re-registering an ID replaces the provider in
// place and logs a warning.
//
// Registry is safe for concurrent use.
type Registry struct {
	logger *zap.Logger

	mu        sync.RWMutex
	order     []string
	providers map[string]completer.Provider
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		logger:    logger,
		providers: make(map[string]completer.Provider),
	}
}

// Register installs p under its ID.
func (r *Registry) Register(p completer.Provider) {
	r.put(p, "provider already registered, replacing")
}

// OverrideProvider replaces the provider registered under p's ID, or adds it.
func (r *Registry) OverrideProvider(p completer.Provider) {
	r.put(p, "overriding provider")
}

// Provider returns the provider registered under id.
func (r *Registry) Provider(id string) (completer.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]

	return p, ok
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []completer.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]completer.Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}

	return out
}

// IDs returns the registered IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// SetContext hands cc to every registered provider.
func (r *Registry) SetContext(cc completer.Context) {
	for _, p := range r.Providers() {
		p.SetContext(cc)
	}
}

func (r *Registry) put(p completer.Provider, msg string) {
	id := p.ID()

	r.mu.Lock()
	_, exists := r.providers[id]
	if !exists {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
	r.mu.Unlock()

	if exists {
		r.logger.Warn(msg, zap.String("provider", id))
	}
}
