package exchange

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Factory builds a connector for one venue. baseURL may be empty to use the
// venue's default.
type Factory func(baseURL string, timeout time.Duration) Connector

// Registry holds named connector factories for selection by config.
type Registry struct {
	factories map[domain.ExchangeID]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add venues.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[domain.ExchangeID]Factory)}
}

// Register adds a factory under the given venue ID.
func (r *Registry) Register(id domain.ExchangeID, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// Get returns the factory for id, or an error if the venue is unknown.
func (r *Registry) Get(id domain.ExchangeID) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("exchange %q not supported (known: %v)", id, r.listLocked())
	}
	return f, nil
}

// List returns all registered venue IDs, sorted.
func (r *Registry) List() []domain.ExchangeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []domain.ExchangeID {
	ids := make([]domain.ExchangeID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
