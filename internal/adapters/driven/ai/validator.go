package ai

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// ConfigValidator checks resolved settings against the configured providers.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding creates the embedding service and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateLLM creates the LLM service and pings it.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateIndex opens the persisted index and checks it against the
// embedding model. It returns the persisted index description.
func (v *ConfigValidator) ValidateIndex(ctx context.Context, settings *domain.Settings) (domain.IndexInfo, error) {
	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return domain.IndexInfo{}, err
	}
	defer embedder.Close()

	idx, err := CreateVectorIndex(&settings.VectorStore, embedder.ModelName())
	if err != nil {
		return domain.IndexInfo{}, err
	}
	defer idx.Close()

	if err := idx.Load(ctx); err != nil {
		return domain.IndexInfo{}, err
	}
	info := idx.Info()
	return info, info.Compatible(embedder.ModelName(), embedder.Dimensions())
}
