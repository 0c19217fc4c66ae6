// Package loaders selects the document loader for a file.
//
// Loaders are registered with the Registry at startup. Selection is by
// lower-cased file extension; the last loader registered for an
// extension wins.
package loaders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/loaders/markdown"
	"github.com/custodia-labs/kbase/internal/loaders/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps file extensions to loaders.
type Registry struct {
	loaders map[string]driven.Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]driven.Loader),
	}
}

// NewDefaultRegistry creates a registry with the markdown and plain text loaders.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	return r
}

// Register adds a loader for each of its extensions.
func (r *Registry) Register(loader driven.Loader) {
	for _, ext := range loader.Extensions() {
		r.loaders[strings.ToLower(ext)] = loader
	}
}

// Load decodes the raw document with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	loader, ok := r.loaders[strings.ToLower(raw.Extension)]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %q", domain.ErrUnsupportedType, raw.Extension)
	}
	return loader.Load(ctx, raw)
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
