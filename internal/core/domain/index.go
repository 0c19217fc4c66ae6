package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Metric is the similarity function a vector index ranks with.
// It is fixed when the index is first built.
type Metric string

// Available similarity metrics.
const (
	// MetricCosine is cosine similarity in [-1, 1].
	MetricCosine Metric = "cosine"

	// MetricDot is the raw inner product.
	MetricDot Metric = "dot"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricDot
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// Similarity scores two vectors of equal length with the metric.
// Vectors of different length are a configuration error.
func (m Metric) Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector dimension %d does not match %d", ErrConfiguration, len(a), len(b))
	}
	switch m {
	case MetricDot:
		return dot(a, b), nil
	case MetricCosine:
		return cosine(a, b), nil
	default:
		return 0, fmt.Errorf("%w: unknown similarity metric %q", ErrConfiguration, string(m))
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// cosine returns 0 when either vector has zero magnitude.
func cosine(a, b []float32) float64 {
	var ab, aa, bb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		ab += x * y
		aa += x * x
		bb += y * y
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return ab / (math.Sqrt(aa) * math.Sqrt(bb))
}

// IndexEntry is a chunk with its embedding, as owned by a vector index.
// Entries are never mutated in place; a rebuild replaces the whole set.
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32

	// Metadata always carries source_id and chunk_index.
	Metadata map[string]any
}

// NewIndexEntry builds an entry with the standard metadata keys.
func NewIndexEntry(chunk Chunk, vector []float32) IndexEntry {
	return IndexEntry{
		Chunk:  chunk,
		Vector: vector,
		Metadata: map[string]any{
			"source_id":   chunk.SourceID,
			"chunk_index": chunk.Index,
		},
	}
}

// ScoredEntry is a vector search hit.
type ScoredEntry struct {
	Entry IndexEntry
	Score float64
}

// SortScored orders hits by descending score. Ties are broken by
// ascending source ID and then ascending chunk index, so equal inputs
// always rank identically.
func SortScored(hits []ScoredEntry) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Entry.Chunk.SourceID != b.Entry.Chunk.SourceID {
			return a.Entry.Chunk.SourceID < b.Entry.Chunk.SourceID
		}
		return a.Entry.Chunk.Index < b.Entry.Chunk.Index
	})
}

// IndexInfo describes a built index. It is persisted next to the entries
// so a restarted process can verify it is reading a compatible index.
type IndexInfo struct {
	// Dimension is the embedding vector length. Zero for an empty index.
	Dimension int

	// Metric is the similarity metric the index ranks with.
	Metric Metric

	// EmbeddingModel is the model that produced the vectors.
	EmbeddingModel string

	// Count is the number of stored entries.
	Count int

	// BuiltAt is when the index was last persisted.
	BuiltAt time.Time
}

// Compatible reports whether vectors from the given model and dimension
// may be stored in or searched against this index.
// An empty index is compatible with anything.
func (i IndexInfo) Compatible(model string, dimension int) error {
	if i.Dimension == 0 {
		return nil
	}
	if i.Dimension != dimension {
		return fmt.Errorf("%w: index dimension %d does not match embedder dimension %d",
			ErrConfiguration, i.Dimension, dimension)
	}
	if i.EmbeddingModel != "" && model != "" && i.EmbeddingModel != model {
		return fmt.Errorf("%w: index was built with model %q, embedder is %q",
			ErrConfiguration, i.EmbeddingModel, model)
	}
	return nil
}
