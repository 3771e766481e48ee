package model

import (
	"context"
	"sync"
	"time"
)

// CatalogEntry describes one selectable model for the admin UI.
type CatalogEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Available bool   `json:"available"`
}

// Lister fetches the live model list for a single provider.
type Lister func(ctx context.Context) ([]CatalogEntry, error)

// Catalog aggregates per-provider model lists behind a TTL cache. A provider
// whose live fetch fails falls back to its static list so the admin UI keeps
// working without credentials or network.
type Catalog struct {
	mu        sync.Mutex
	ttl       time.Duration
	fetched   time.Time
	cached    []CatalogEntry
	listers   map[string]Lister
	fallbacks map[string][]CatalogEntry
}

// NewCatalog creates a catalog with the given cache TTL and the built-in
// fallback lists for the supported providers.
func NewCatalog(ttl time.Duration) *Catalog {
	return &Catalog{
		ttl:     ttl,
		listers: make(map[string]Lister),
		fallbacks: map[string][]CatalogEntry{
			"openai": {
				{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai", Available: true},
				{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "openai", Available: true},
				{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Provider: "openai", Available: true},
				{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: "openai", Available: true},
			},
			"anthropic": {
				{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Provider: "anthropic", Available: true},
				{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Provider: "anthropic", Available: true},
				{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Provider: "anthropic", Available: true},
			},
		},
	}
}

// RegisterLister attaches a live fetcher for a provider. Without one the
// provider serves its fallback list only.
func (c *Catalog) RegisterLister(provider string, l Lister) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listers[provider] = l
}

// Models returns the merged model list, refreshing expired cache entries.
func (c *Catalog) Models(ctx context.Context) []CatalogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetched) < c.ttl {
		return append([]CatalogEntry(nil), c.cached...)
	}

	var merged []CatalogEntry
	for provider, fallback := range c.fallbacks {
		entries := fallback
		if lister, ok := c.listers[provider]; ok {
			if live, err := lister(ctx); err == nil && len(live) > 0 {
				entries = live
			}
		}
		merged = append(merged, entries...)
	}

	c.cached = merged
	c.fetched = time.Now()

	return append([]CatalogEntry(nil), merged...)
}

// Invalidate drops the cached list so the next Models call refetches.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
