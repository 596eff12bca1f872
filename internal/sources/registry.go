package sources

import (
	"sync"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// Registry manages the set of configured source adapters. It provides
// thread-safe registration and retrieval; the search orchestrator owns the
// actual fan-out.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.SourceType]SourceAdapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[domain.SourceType]SourceAdapter),
	}
}

// Register adds an adapter to the registry, replacing any existing adapter
// for the same source type.
func (r *Registry) Register(adapter SourceAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.SourceType()] = adapter
}

// Get returns the adapter for a source type, or nil if not registered.
func (r *Registry) Get(sourceType domain.SourceType) SourceAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[sourceType]
}

// Enabled returns the enabled adapters among the requested source types,
// preserving the requested order. A nil or empty request means all enabled
// adapters, in domain.AllSourceTypes order.
func (r *Registry) Enabled(sourceTypes []domain.SourceType) []SourceAdapter {
	if len(sourceTypes) == 0 {
		sourceTypes = domain.AllSourceTypes
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]SourceAdapter, 0, len(sourceTypes))
	for _, st := range sourceTypes {
		if adapter, ok := r.adapters[st]; ok && adapter.IsEnabled() {
			adapters = append(adapters, adapter)
		}
	}
	return adapters
}
