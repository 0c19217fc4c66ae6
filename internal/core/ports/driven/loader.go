package driven

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Loader turns the raw bytes of a file into a Document.
// Each loader handles specific file extensions (e.g. .md, .txt).
type Loader interface {
	// Name identifies the loader in logs.
	Name() string

	// Extensions returns the lower-cased extensions this loader handles,
	// including the leading dot.
	Extensions() []string

	// Load decodes a raw document. Failures wrap domain.ErrDocumentLoad.
	Load(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// LoaderRegistry selects the loader for a raw document by extension.
type LoaderRegistry interface {
	// Load decodes the raw document with the registered loader.
	// Unknown extensions fail with domain.ErrUnsupportedType.
	Load(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// Register adds a loader to the registry.
	Register(loader Loader)

	// Extensions returns all extensions that can be loaded.
	Extensions() []string
}
