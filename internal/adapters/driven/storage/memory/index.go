package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory brute-force vector index. It is also the search
// core the persistent backends embed: they add Persist, Load and Purge
// on top of Entries and Replace.
type Index struct {
	mu        sync.RWMutex
	metric    domain.Metric
	model     string
	current   string
	dimension int
	entries   []domain.IndexEntry
	builtAt   time.Time
}

// NewIndex creates an empty index ranking with metric. model names the
// embedding model whose vectors will be added.
func NewIndex(metric domain.Metric, model string) (*Index, error) {
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown similarity metric %q", domain.ErrConfiguration, metric)
	}
	return &Index{metric: metric, model: model, current: model}, nil
}

// Add validates every vector before appending any, so a bad batch leaves
// the index unchanged.
func (x *Index) Add(ctx context.Context, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dimension
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %d (%s) has an empty vector", domain.ErrInvalidInput, i, e.Chunk.ID)
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has dimension %d, index has %d",
				domain.ErrConfiguration, i, len(e.Vector), dim)
		}
	}

	x.dimension = dim
	x.current = x.model
	x.entries = append(x.entries, entries...)
	return nil
}

// Persist is a no-op for the in-memory backend.
func (x *Index) Persist(_ context.Context) error {
	x.mu.Lock()
	x.builtAt = time.Now().UTC()
	x.mu.Unlock()
	return nil
}

// Load is a no-op for the in-memory backend; there is nothing durable to read.
func (x *Index) Load(_ context.Context) error {
	return nil
}

// Search ranks every entry against query and returns the top k.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.entries) == 0 {
		return []domain.ScoredEntry{}, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			domain.ErrConfiguration, len(query), x.dimension)
	}

	hits := make([]domain.ScoredEntry, len(x.entries))
	for i, e := range x.entries {
		score, err := x.metric.Similarity(query, e.Vector)
		if err != nil {
			return nil, err
		}
		hits[i] = domain.ScoredEntry{Entry: e, Score: score}
	}
	domain.SortScored(hits)

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Count returns the number of entries.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Info describes the index.
func (x *Index) Info() domain.IndexInfo {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.infoLocked()
}

func (x *Index) infoLocked() domain.IndexInfo {
	info := domain.IndexInfo{
		Dimension: x.dimension,
		Metric:    x.metric,
		Count:     len(x.entries),
		BuiltAt:   x.builtAt,
	}
	if len(x.entries) > 0 {
		info.EmbeddingModel = x.current
	}
	return info
}

// Metric returns the similarity metric fixed at construction.
func (x *Index) Metric() domain.Metric {
	return x.metric
}

// Reset clears the entry set.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.resetLocked()
}

func (x *Index) resetLocked() {
	x.entries = nil
	x.dimension = 0
	x.current = x.model
	x.builtAt = time.Time{}
}

// Purge clears the entry set; there is nothing durable to delete.
func (x *Index) Purge(_ context.Context) error {
	x.Reset()
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// Entries returns a snapshot of the stored entries with the matching info.
func (x *Index) Entries() ([]domain.IndexEntry, domain.IndexInfo) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]domain.IndexEntry, len(x.entries))
	copy(out, x.entries)
	return out, x.infoLocked()
}

// Replace swaps in a persisted entry set. The metric must match the one
// fixed at construction and every vector must have info.Dimension entries.
func (x *Index) Replace(entries []domain.IndexEntry, info domain.IndexInfo) error {
	if info.Metric != "" && info.Metric != x.metric {
		return fmt.Errorf("%w: index was built with metric %q, configured metric is %q",
			domain.ErrConfiguration, info.Metric, x.metric)
	}
	for i, e := range entries {
		if len(e.Vector) != info.Dimension {
			return fmt.Errorf("%w: entry %d has dimension %d, index records %d",
				domain.ErrIndexPersistence, i, len(e.Vector), info.Dimension)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if len(entries) == 0 {
		x.resetLocked()
		x.builtAt = info.BuiltAt
		return nil
	}
	x.entries = entries
	x.dimension = info.Dimension
	x.current = info.EmbeddingModel
	x.builtAt = info.BuiltAt
	return nil
}

// MarkBuilt records the persist time.
func (x *Index) MarkBuilt(t time.Time) {
	x.mu.Lock()
	x.builtAt = t
	x.mu.Unlock()
}
