package postprocessors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// BuilderFunc builds a PostProcessor from its section of the pipeline
// config. cfg may be nil.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps post-processor names to builders so the indexing pipeline
// can be assembled from settings. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register makes a builder available under name. Like sql.Register it
// panics on a nil builder or a name registered twice.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if builder == nil {
		panic("postprocessors: Register builder is nil for " + name)
	}
	if _, dup := r.builders[name]; dup {
		panic("postprocessors: Register called twice for " + name)
	}
	r.builders[name] = builder
}

// Build creates the processor registered under name. An unknown name is
// a configuration error listing what is available.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown post-processor %q (available: %s)",
			domain.ErrConfiguration, name, strings.Join(r.Names(), ", "))
	}
	return builder(cfg)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
