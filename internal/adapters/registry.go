package adapters

import (
	"sync"

	"go-venue/internal/common/models"
)

// Registry holds the configured adapters, keyed by system. It is populated at
// composition time and read concurrently by the orchestrator and the monitor.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.ExternalSystem]EntityAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[models.ExternalSystem]EntityAdapter),
	}
}

// Register replaces any previous adapter for the same system.
func (r *Registry) Register(adapter EntityAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.System()] = adapter
}

func (r *Registry) Get(system models.ExternalSystem) (EntityAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[system]
	return adapter, ok
}

// Systems returns the systems that currently have an adapter configured.
func (r *Registry) Systems() []models.ExternalSystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ExternalSystem, 0, len(r.adapters))
	for system := range r.adapters {
		out = append(out, system)
	}
	return out
}
