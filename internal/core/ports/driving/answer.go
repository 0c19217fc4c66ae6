package driving

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// AnswerService answers questions from the indexed corpus.
type AnswerService interface {
	// Ask retrieves supporting chunks, builds a citation-annotated context
	// and returns the model's answer with that context.
	Ask(ctx context.Context, question string) (*domain.AnswerResult, error)
}

// RetrievalService returns the ranked chunks for a question without
// calling the language model.
type RetrievalService interface {
	// Retrieve returns min(k, index size) chunks ranked from 1.
	Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error)
}
