package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kbase/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbase/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/core/services"
	"github.com/custodia-labs/kbase/internal/loaders"
	"github.com/custodia-labs/kbase/internal/postprocessors"
)

// Composition seams. Tests replace these to run commands without models.
var (
	newChainBuilder = chainBuilder
	newIndexer      = buildIndexer
)

// chainBuilder returns a builder that wires the chain from settings,
// reading prompt templates from prompts.
func chainBuilder(prompts driven.PromptStore) services.ChainBuilder {
	return func(ctx context.Context, settings *domain.Settings) (*services.GenerationChain, error) {
		components, err := ai.Open(ctx, settings)
		if err != nil {
			return nil, err
		}

		retriever, err := services.NewRetriever(components.EmbeddingService, components.VectorIndex, settings.Retrieval.K)
		if err != nil {
			components.Close()
			return nil, err
		}

		return services.NewGenerationChain(retriever, components.LLMService, prompts, services.ChainConfig{
			MaxTokens:       settings.LLM.MaxTokens,
			Temperature:     settings.LLM.Temperature,
			MaxContextChars: settings.Retrieval.MaxContextChars,
			OnClose: func() error {
				components.Close()
				return nil
			},
		}), nil
	}
}

// buildIndexer wires an indexer for settings. The returned func releases
// the embedder and index.
func buildIndexer(ctx context.Context, settings *domain.Settings) (driving.IndexService, func(), error) {
	if err := settings.ValidateIndexing(); err != nil {
		return nil, nil, err
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settings.PipelineConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, nil, err
	}

	index, err := ai.CreateVectorIndex(&settings.VectorStore, embedder.ModelName())
	if err != nil {
		embedder.Close()
		return nil, nil, err
	}

	indexer := services.NewIndexer(loaders.NewDefaultRegistry(), pipeline, embedder, index, services.IndexerConfig{
		Patterns:  settings.Index.Patterns,
		BatchSize: settings.Index.BatchSize,
		Dir:       settings.VectorStore.Dir,
	})
	release := func() {
		index.Close()
		embedder.Close()
	}
	return indexer, release, nil
}

// openChainCache resolves validated settings and a chain cache over the
// configured prompt store.
func openChainCache() (*services.ChainCache, *file.PromptStore, *domain.Settings, error) {
	svc, err := requireSettings()
	if err != nil {
		return nil, nil, nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve settings: %w", err)
	}

	prompts, err := file.NewPromptStore(settings.PromptsDir)
	if err != nil {
		return nil, nil, nil, err
	}

	cache, err := services.NewChainCache(settings, newChainBuilder(prompts))
	if err != nil {
		return nil, nil, nil, err
	}
	return cache, prompts, settings, nil
}
