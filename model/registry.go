package model

import (
	"fmt"
	"strings"
	"sync"
)

// UnknownProviderError reports a model backend name outside the registered
// closed set. Callers surface it as a configuration error before anything is
// persisted.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown model provider: %s", e.Provider)
}

// Factory produces a Backend bound to a concrete model identifier.
// Provider credentials are captured at registration time from process-wide
// configuration; factories themselves must not mutate shared state.
type Factory func(modelID string) Backend

// Registry maps provider names to backend factories. The set is closed at
// construction time: resolution of anything unregistered fails with
// *UnknownProviderError.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds (or replaces) a provider factory. Names are case-insensitive.
func (r *Registry) Register(provider string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(provider)] = factory
}

// Resolve returns a backend for the provider/model pair or
// *UnknownProviderError if the provider is not registered.
func (r *Registry) Resolve(provider, modelID string) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(provider)]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownProviderError{Provider: provider}
	}

	return factory(modelID), nil
}

// Providers returns the registered provider names.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
