package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

// Registry maps sync domain names to their handlers. The mapping is
// fixed at construction; there is no runtime lookup beyond this map, so
// a typo in a domain name fails fast instead of importing by string.
type Registry struct {
	handlers map[string]driven.Handler
	names    []string
}

// NewRegistry builds the registry, rejecting duplicate domain names.
func NewRegistry(handlers ...driven.Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]driven.Handler, len(handlers))}
	for _, h := range handlers {
		name := h.Domain()
		if _, dup := r.handlers[name]; dup {
			return nil, fmt.Errorf("duplicate sync domain %q", name)
		}
		r.handlers[name] = h
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Get returns the handler for a domain, or domain.ErrUnknownDomain.
func (r *Registry) Get(name string) (driven.Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDomain, name)
	}
	return h, nil
}

// Names returns the registered domain names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
