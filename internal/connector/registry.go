package connector

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// Factory constructs a connector from resolved configuration.
type Factory func(cfg Config) (Connector, error)

// ParameterDoc documents one job parameter of a source.
type ParameterDoc struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Descriptor is the catalog entry shown to operators for a source.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FreeTier    string `json:"free_tier,omitempty"`
	// DefaultRateLimit overrides the global requests-per-minute default when non-zero.
	DefaultRateLimit int            `json:"default_rate_limit,omitempty"`
	Parameters       []ParameterDoc `json:"parameters"`
	Example          map[string]any `json:"example,omitempty"`
}

type registration struct {
	desc    Descriptor
	factory Factory
}

// Registry maps source types to connector factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[model.SourceType]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[model.SourceType]registration)}
}

// Register adds or replaces the factory for st.
func (r *Registry) Register(st model.SourceType, desc Descriptor, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("connector: nil factory for %s", st))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[st] = registration{desc: desc, factory: factory}
}

// New constructs the connector for st and validates its configuration.
// A connector that fails validation is closed before the error is returned.
func (r *Registry) New(st model.SourceType, cfg Config) (Connector, error) {
	r.mu.RLock()
	reg, ok := r.entries[st]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{SourceType: st}
	}

	conn, err := reg.factory(cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.ValidateConfig(); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	return conn, nil
}

// Available lists registered source types in sorted order.
func (r *Registry) Available() []model.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.SourceType, 0, len(r.entries))
	for st := range r.entries {
		out = append(out, st)
	}
	slices.Sort(out)
	return out
}

// Describe returns the catalog entry for st.
func (r *Registry) Describe(st model.SourceType) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[st]
	return reg.desc, ok
}

// Has reports whether st has a registered connector.
func (r *Registry) Has(st model.SourceType) bool {
	_, ok := r.Describe(st)
	return ok
}
