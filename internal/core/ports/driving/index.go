package driving

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// IndexService builds the vector index from a documents directory.
type IndexService interface {
	// Build loads, chunks, embeds and persists every matching document,
	// replacing the previously persisted index.
	Build(ctx context.Context, req domain.BuildRequest) (*domain.BuildReport, error)
}
