package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts listed in vectors get that vector, everything else gets fallback.
type mockEmbeddingService struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	fallback   []float32
	embedErr   error
	batchErr   error
	model      string
	embedCalls int
	batchCalls int
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.fallback
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.fallback)
}

func (m *mockEmbeddingService) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

func (m *mockEmbeddingService) calls() (embed, batch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls, m.batchCalls
}

// mockLLMService implements driven.LLMService for testing.
// respond, when set, computes the completion from the prompt.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	respond  func(prompt string) string
	err      error
	prompts  []string
	opts     []driven.GenerateOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if m.respond != nil {
		return m.respond(prompt), nil
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	template string
	err      error
}

func (m *mockPromptStore) Load(_ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.template != "" {
		return m.template, nil
	}
	return "CONTEXT<%[1]s> QUESTION<%[2]s>", nil
}

func (m *mockPromptStore) Reload() {}

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string) ([]domain.RetrievedChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

// failingLoaderRegistry fails for the listed source IDs and delegates
// everything else.
type failingLoaderRegistry struct {
	driven.LoaderRegistry
	fail map[string]error
}

func (r *failingLoaderRegistry) Load(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if err, ok := r.fail[raw.SourceID]; ok {
		return nil, err
	}
	return r.LoaderRegistry.Load(ctx, raw)
}

// --- Test helpers ---

func retrieved(texts ...string) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, len(texts))
	for i, text := range texts {
		out[i] = domain.RetrievedChunk{
			Chunk: domain.Chunk{SourceID: "doc.md", Index: i, Text: text, CharEnd: len(text)},
			Score: 1 - float64(i)*0.1,
			Rank:  i + 1,
		}
	}
	return out
}
