package gateway

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownGateway is returned for an identifier with no registration.
var ErrUnknownGateway = errors.New("unknown payment gateway")

// Registry holds the configured providers keyed by identifier.
type Registry struct {
	mu       sync.RWMutex
	gateways map[int]Gateway
	deflt    int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[int]Gateway)}
}

// Add registers a provider. The first provider added becomes the
// default until SetDefault overrides it.
func (r *Registry) Add(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.gateways) == 0 {
		r.deflt = g.Identifier()
	}
	r.gateways[g.Identifier()] = g
}

// SetDefault selects the provider used when no policy picks another.
func (r *Registry) SetDefault(identifier int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gateways[identifier]; !ok {
		return ErrUnknownGateway
	}
	r.deflt = identifier
	return nil
}

// Get returns the provider for an identifier.
func (r *Registry) Get(identifier int) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[identifier]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return g, nil
}

// Default returns the default provider.
func (r *Registry) Default() (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[r.deflt]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return g, nil
}

// List returns the registered providers ordered by identifier.
func (r *Registry) List() []Gateway {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Gateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier() < out[j].Identifier() })
	return out
}
