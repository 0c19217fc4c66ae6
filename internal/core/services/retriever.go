package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 4

// Retriever embeds a question and returns the k nearest chunks.
// There is no reranking and no score threshold: it always returns
// min(k, index size) results. Safe for concurrent use.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	k        int
}

// NewRetriever creates a retriever over a loaded index. The index must
// have been built with the same embedding model and dimension.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, k int) (*Retriever, error) {
	if embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: retriever needs an embedder and an index", domain.ErrConfiguration)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: retrieval k must be positive, got %d", domain.ErrConfiguration, k)
	}
	if err := index.Info().Compatible(embedder.ModelName(), embedder.Dimensions()); err != nil {
		return nil, err
	}
	return &Retriever{embedder: embedder, index: index, k: k}, nil
}

// K returns the fixed result count.
func (r *Retriever) K() int {
	return r.k
}

// Retrieve returns ranked chunks for question. An empty index returns an
// empty slice without calling the embedder.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidInput)
	}
	if r.index.Count() == 0 {
		logger.Debug("index is empty, nothing to retrieve")
		return []domain.RetrievedChunk{}, nil
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := r.index.Search(ctx, vector, r.k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]domain.RetrievedChunk, len(hits))
	for i, hit := range hits {
		results[i] = domain.RetrievedChunk{
			Chunk: hit.Entry.Chunk,
			Score: hit.Score,
			Rank:  i + 1,
		}
	}
	logger.Debug("retrieved %d chunks", len(results))
	return results, nil
}
