package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

func envMap(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func noEnv() SettingsOption {
	return WithEnv(envMap(nil))
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv(), WithDefaultPromptsDir("/cfg/prompts"))

	settings, err := service.Get()
	require.NoError(t, err)

	want := domain.DefaultSettings()
	want.PromptsDir = "/cfg/prompts"
	assert.Equal(t, &want, settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider":          "openai",
		"embedding.api_key":           "sk-embed",
		"llm.provider":                "ollama",
		"llm.model":                   "mistral",
		"llm.base_url":                "http://gpu:11434",
		"llm.max_tokens":              int64(512),
		"llm.temperature":             0.0,
		"vector_store.dir":            "/data/vs",
		"vector_store.backend":        "bolt",
		"vector_store.metric":         "dot",
		"retrieval.k":                 int64(8),
		"retrieval.max_context_chars": int64(4000),
		"chunker.chunk_size":          int64(800),
		"chunker.overlap":             int64(80),
		"index.patterns":              []any{"**/*.md", "**/*.txt"},
		"server.addr":                 "127.0.0.1:9000",
		"prompts.dir":                 "/etc/kbase/prompts",
	})
	service := NewSettingsService(store, noEnv())

	s, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, s.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", s.Embedding.Model, "model defaults per provider")
	assert.Equal(t, "sk-embed", s.Embedding.APIKey)
	assert.Equal(t, domain.AIProviderOllama, s.LLM.Provider)
	assert.Equal(t, "mistral", s.LLM.Model)
	assert.Equal(t, "http://gpu:11434", s.LLM.BaseURL)
	assert.Equal(t, 512, s.LLM.MaxTokens)
	assert.Equal(t, 0.0, s.LLM.Temperature, "zero temperature is honoured")
	assert.Equal(t, 3, s.LLM.MaxAttempts)
	assert.Equal(t, "/data/vs", s.VectorStore.Dir)
	assert.Equal(t, domain.VectorBackendBolt, s.VectorStore.Backend)
	assert.Equal(t, domain.MetricDot, s.VectorStore.Metric)
	assert.Equal(t, 8, s.Retrieval.K)
	assert.Equal(t, 4000, s.Retrieval.MaxContextChars)
	assert.Equal(t, 800, s.Chunker.ChunkSize)
	assert.Equal(t, 80, s.Chunker.Overlap)
	assert.Equal(t, []string{"**/*.md", "**/*.txt"}, s.Index.Patterns)
	assert.Equal(t, "127.0.0.1:9000", s.Server.Addr)
	assert.Equal(t, "/etc/kbase/prompts", s.PromptsDir)
}

func TestSettingsService_Get_EnvironmentWins(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"vector_store.dir": "/from/config",
		"llm.api_key":      "config-key",
		"llm.model":        "config-model",
		"embedding.model":  "hash-384",
	})
	env := envMap(map[string]string{
		EnvVectorDir:       "/from/env",
		EnvAnthropicAPIKey: "env-key",
		EnvAnthropicModel:  "claude-3-5-sonnet-latest",
		EnvEmbeddingModel:  "custom-embed",
		EnvVectorBackend:   "memory",
		EnvDocsDir:         "/srv/docs",
	})
	service := NewSettingsService(store, WithEnv(env))

	s, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "/from/env", s.VectorStore.Dir)
	assert.Equal(t, "env-key", s.LLM.APIKey)
	assert.Equal(t, "claude-3-5-sonnet-latest", s.LLM.Model)
	assert.Equal(t, "custom-embed", s.Embedding.Model)
	assert.Equal(t, domain.VectorBackendMemory, s.VectorStore.Backend)
	assert.Equal(t, "/srv/docs", s.Server.DocsDir)
}

func TestSettingsService_Get_ProviderScopedCredentials(t *testing.T) {
	env := envMap(map[string]string{
		EnvAnthropicAPIKey: "anthropic-key",
		EnvOpenAIAPIKey:    "openai-key",
	})

	t.Run("anthropic llm, local embeddings", func(t *testing.T) {
		s, err := NewSettingsService(memory.NewConfigStore(), WithEnv(env)).Get()
		require.NoError(t, err)
		assert.Equal(t, "anthropic-key", s.LLM.APIKey)
		assert.Empty(t, s.Embedding.APIKey)
	})

	t.Run("openai everywhere", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{
			"llm.provider":       "openai",
			"embedding.provider": "openai",
		})
		s, err := NewSettingsService(store, WithEnv(env)).Get()
		require.NoError(t, err)
		assert.Equal(t, "openai-key", s.LLM.APIKey)
		assert.Equal(t, "openai-key", s.Embedding.APIKey)
		assert.Equal(t, "gpt-4o-mini", s.LLM.Model)
	})

	t.Run("provider from env", func(t *testing.T) {
		vars := map[string]string{EnvLLMProvider: "openai", EnvOpenAIAPIKey: "k"}
		s, err := NewSettingsService(memory.NewConfigStore(), WithEnv(envMap(vars))).Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOpenAI, s.LLM.Provider)
		assert.Equal(t, "gpt-4o-mini", s.LLM.Model)
		assert.NoError(t, s.Validate())
	})
}

func TestSettingsService_Get_UnknownValuesFailValidation(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"vector_store.backend": "chroma",
		"llm.api_key":          "k",
	})
	s, err := NewSettingsService(store, noEnv()).Get()
	require.NoError(t, err)
	assert.ErrorIs(t, s.Validate(), domain.ErrConfiguration)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  any
	}{
		{"string", "llm.model", "claude-3-opus", "claude-3-opus"},
		{"int from string", "retrieval.k", " 6 ", 6},
		{"float from string", "llm.temperature", "0.5", 0.5},
		{"list from string", "index.patterns", "**/*.md, *.txt,", []string{"**/*.md", "*.txt"}},
		{"typed value kept", "chunker.chunk_size", 700, 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, noEnv())

			require.NoError(t, service.Set(tt.key, tt.value))
			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv())

	assert.ErrorIs(t, service.Set("search.mode", "hybrid"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("retrieval.k", "four"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("llm.temperature", "warm"), domain.ErrInvalidInput)
}

func TestSettingsService_SetThenGet(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv())
	require.NoError(t, service.Set("retrieval.k", "2"))
	require.NoError(t, service.Set("llm.temperature", "0"))

	s, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Retrieval.K)
	assert.Equal(t, 0.0, s.LLM.Temperature)
}

func TestSettingsService_ConfigPath(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	assert.Equal(t, ":memory:", service.ConfigPath())
}

func TestKnownKeys(t *testing.T) {
	keys := KnownKeys()
	assert.Contains(t, keys, "llm.api_key")
	assert.Contains(t, keys, "vector_store.dir")
	assert.IsIncreasing(t, keys)
}
