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

// Ensure GenerationChain implements the interfaces.
var (
	_ driving.AnswerService    = (*GenerationChain)(nil)
	_ driving.RetrievalService = (*GenerationChain)(nil)
)

// Generation defaults.
const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.2
)

// ChainConfig configures a GenerationChain.
type ChainConfig struct {
	// MaxTokens bounds the completion length.
	MaxTokens int

	// Temperature is the fixed sampling temperature.
	Temperature float64

	// MaxContextChars bounds the assembled context. Zero disables it.
	MaxContextChars int

	// OnClose releases resources the chain was built from.
	OnClose func() error
}

// DefaultChainConfig returns the standard generation settings.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		MaxTokens:       DefaultMaxTokens,
		Temperature:     DefaultTemperature,
		MaxContextChars: domain.DefaultSettings().Retrieval.MaxContextChars,
	}
}

// GenerationChain answers a question from retrieved context.
// It holds no mutable state and is safe for concurrent use.
type GenerationChain struct {
	retriever driving.RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	cfg       ChainConfig
}

// NewGenerationChain creates a chain. The LLM service is expected to
// carry its own retry policy.
func NewGenerationChain(
	retriever driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg ChainConfig,
) *GenerationChain {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &GenerationChain{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// Ask retrieves context for question and asks the model to answer from it.
// An empty index or a blank question still reaches the model, with an
// empty context block.
func (c *GenerationChain) Ask(ctx context.Context, question string) (*domain.AnswerResult, error) {
	question = strings.TrimSpace(question)

	var chunks []domain.RetrievedChunk
	if question != "" {
		var err error
		chunks, err = c.retriever.Retrieve(ctx, question)
		if err != nil {
			return nil, err
		}
	}

	fitted := FitContext(chunks, c.cfg.MaxContextChars)
	if len(fitted) < len(chunks) {
		logger.Debug("context bound %d chars: kept %d of %d chunks", c.cfg.MaxContextChars, len(fitted), len(chunks))
	}
	contextText := AssembleContext(fitted)

	template, err := c.prompts.Load(driven.PromptRAGAnswer)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	prompt := fmt.Sprintf(template, contextText, question)

	answer, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.AnswerResult{
		Answer:  strings.TrimSpace(answer),
		Context: contextText,
	}, nil
}

// Retrieve returns the ranked chunks without calling the model.
func (c *GenerationChain) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	return c.retriever.Retrieve(ctx, question)
}

// ModelName returns the language model in use.
func (c *GenerationChain) ModelName() string {
	return c.llm.ModelName()
}

// Close releases the resources the chain was built from.
func (c *GenerationChain) Close() error {
	if c.cfg.OnClose != nil {
		return c.cfg.OnClose()
	}
	return nil
}
