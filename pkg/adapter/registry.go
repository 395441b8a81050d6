package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Factory builds a fresh adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

// Registry maps engine tags to adapter factories. The zero value is not
// usable; call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[core.Engine]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[core.Engine]Factory)}
}

// Register adds or replaces the factory for engine.
func (r *Registry) Register(engine core.Engine, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[engine] = factory
}

// Get retrieves the factory for engine.
func (r *Registry) Get(engine core.Engine) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[engine]
	return f, ok
}

// New creates an adapter for engine.
func (r *Registry) New(engine core.Engine, logger *slog.Logger) (Adapter, error) {
	if engine == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := r.Get(engine)
	if !ok {
		return nil, &UnknownAdapterError{Type: string(engine), Available: r.Names()}
	}
	return factory(logger), nil
}

// Names returns all registered engine names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for engine := range r.factories {
		names = append(names, string(engine))
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that adapter packages populate
// from init().
func Default() *Registry {
	return defaultRegistry
}

// Register adds an adapter factory to the default registry.
// Called by adapter implementations in their init() functions.
func Register(engine core.Engine, factory Factory) {
	defaultRegistry.Register(engine, factory)
}

// Get retrieves an adapter factory from the default registry.
func Get(engine core.Engine) (Factory, bool) {
	return defaultRegistry.Get(engine)
}

// NewAdapter creates an adapter for cfg's engine from the default registry.
func NewAdapter(cfg core.ConnectionConfig, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.New(cfg.Engine, logger)
}

// ListAdapters returns all adapter names in the default registry (sorted).
func ListAdapters() []string {
	return defaultRegistry.Names()
}

// IsRegistered checks if an engine is in the default registry.
func IsRegistered(engine core.Engine) bool {
	_, ok := defaultRegistry.Get(engine)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check the connection type in leapconnect.yaml", e.Type, e.Available)
}
