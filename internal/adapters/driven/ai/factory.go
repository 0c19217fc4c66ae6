// Package ai provides factory functions for creating AI service adapters
// and the vector index they feed.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/kbase/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kbase/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/kbase/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/kbase/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/kbase/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/kbase/internal/adapters/driven/llm/retry"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/ratelimit"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Components holds the adapters a generation chain is built from.
type Components struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
}

// Close releases all resources held by Components.
func (c *Components) Close() {
	if c.EmbeddingService != nil {
		c.EmbeddingService.Close()
	}
	if c.VectorIndex != nil {
		c.VectorIndex.Close()
	}
	if c.LLMService != nil {
		c.LLMService.Close()
	}
}

// Open creates and validates every component for settings and loads the
// persisted index. Any failure closes what was already opened.
func Open(ctx context.Context, settings *domain.Settings) (*Components, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings not resolved", domain.ErrConfiguration)
	}

	c := &Components{}
	var err error

	c.EmbeddingService, err = CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}

	c.LLMService, err = CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.VectorIndex, err = CreateVectorIndex(&settings.VectorStore, c.EmbeddingService.ModelName())
	if err != nil {
		c.Close()
		return nil, err
	}
	if err := c.VectorIndex.Load(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Failures are reported as domain.ErrModelLoad.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, modelLoadError("embedding", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: embedding service unreachable: %w", domain.ErrModelLoad, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Failures are reported as domain.ErrModelLoad.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, modelLoadError("language model", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: language model unreachable: %w", domain.ErrModelLoad, err)
	}

	return svc, nil
}

// modelLoadError keeps configuration errors classifiable as both kinds.
func modelLoadError(what string, err error) error {
	if errors.Is(err, domain.ErrModelLoad) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrModelLoad, what, err)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings missing", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		svc, err := local.NewEmbeddingService(settings.Model)
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use local, ollama or openai",
			domain.ErrConfiguration)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrConfiguration, settings.Provider)
	}
}

// CreateLLMService creates the LLM service for settings, wrapped in the
// retry decorator and the provider's rate limiter.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: LLM settings missing", domain.ErrConfiguration)
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("%w: LLM model identifier is required", domain.ErrConfiguration)
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaLLM(settings)

	case domain.AIProviderOpenAI:
		svc, err = createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		svc, err = createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", domain.ErrConfiguration, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy()
	if settings.MaxAttempts > 0 {
		policy.MaxAttempts = settings.MaxAttempts
	}
	return retry.New(svc, policy, retry.WithLimiter(ratelimit.ForProvider(settings.Provider.String()))), nil
}

// CreateVectorIndex creates the configured vector index backend. Nothing
// is read from disk until Load.
func CreateVectorIndex(settings *domain.VectorStoreSettings, model string) (driven.VectorIndex, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: vector store settings missing", domain.ErrConfiguration)
	}

	var (
		idx driven.VectorIndex
		err error
	)
	switch settings.Backend {
	case domain.VectorBackendSQLite:
		idx, err = sqlite.NewIndex(settings.Dir, settings.Metric, model)

	case domain.VectorBackendBolt:
		idx, err = bolt.NewIndex(settings.Dir, settings.Metric, model)

	case domain.VectorBackendMemory:
		idx, err = memory.NewIndex(settings.Metric, model)

	default:
		return nil, fmt.Errorf("%w: unsupported vector backend %q", domain.ErrConfiguration, settings.Backend)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
		Limiter:    ratelimit.ForProvider(domain.AIProviderOpenAI.String()),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
