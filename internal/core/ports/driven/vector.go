package driven

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// VectorIndex persists index entries and answers nearest-neighbour queries.
//
// The similarity metric is fixed at construction. The first Add fixes the
// vector dimension; later vectors of another length fail with
// domain.ErrConfiguration.
//
// Writes (Add, Persist, Reset, Purge) happen only during an offline build.
// Search, Count and Info are safe for concurrent use.
type VectorIndex interface {
	// Add appends entries to the in-memory set.
	Add(ctx context.Context, entries []domain.IndexEntry) error

	// Persist writes the complete entry set to durable storage, replacing
	// whatever was persisted before. Nothing is written on failure.
	Persist(ctx context.Context) error

	// Load replaces the in-memory set with the persisted one.
	// A missing directory is an empty index, not an error.
	Load(ctx context.Context) error

	// Search returns at most k entries ordered by descending similarity.
	// k is clamped to Count.
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredEntry, error)

	// Count returns the number of entries.
	Count() int

	// Info describes the index.
	Info() domain.IndexInfo

	// Reset clears the in-memory set and dimension without touching
	// durable storage. A rebuild starts from Reset.
	Reset()

	// Purge deletes the persisted index and clears the in-memory set.
	Purge(ctx context.Context) error

	// Close releases resources.
	Close() error
}
