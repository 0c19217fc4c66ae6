package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMMaxTokens      = "llm.max_tokens"
	keyLLMTemperature    = "llm.temperature"
	keyLLMMaxAttempts    = "llm.max_attempts"
	keyVectorDir         = "vector_store.dir"
	keyVectorBackend     = "vector_store.backend"
	keyVectorMetric      = "vector_store.metric"
	keyRetrievalK        = "retrieval.k"
	keyRetrievalMaxChars = "retrieval.max_context_chars"
	keyChunkSize         = "chunker.chunk_size"
	keyChunkOverlap      = "chunker.overlap"
	keyIndexPatterns     = "index.patterns"
	keyIndexBatchSize    = "index.batch_size"
	keyServerAddr        = "server.addr"
	keyServerDocsDir     = "server.docs_dir"
	keyPromptsDir        = "prompts.dir"
)

// Environment variables, applied over the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvVectorDir         = "VECTOR_DIR"
	EnvVectorBackend     = "KBASE_VECTOR_BACKEND"
	EnvEmbeddingProvider = "KBASE_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "EMBEDDING_MODEL"
	EnvLLMProvider       = "KBASE_LLM_PROVIDER"
	EnvAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	EnvAnthropicModel    = "ANTHROPIC_MODEL_NAME"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvDocsDir           = "DOCS_DIR"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindStrings
)

// knownKeys lists every settable key with the type it is stored as.
var knownKeys = map[string]valueKind{
	keyEmbedProvider:     kindString,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyLLMProvider:       kindString,
	keyLLMModel:          kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyLLMMaxTokens:      kindInt,
	keyLLMTemperature:    kindFloat,
	keyLLMMaxAttempts:    kindInt,
	keyVectorDir:         kindString,
	keyVectorBackend:     kindString,
	keyVectorMetric:      kindString,
	keyRetrievalK:        kindInt,
	keyRetrievalMaxChars: kindInt,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyIndexPatterns:     kindStrings,
	keyIndexBatchSize:    kindInt,
	keyServerAddr:        kindString,
	keyServerDocsDir:     kindString,
	keyPromptsDir:        kindString,
}

// KnownKeys returns the settable configuration keys in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService resolves application settings. Sources, lowest to
// highest precedence: defaults, the config store, then the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
	promptsDir  string
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnv replaces the environment lookup.
func WithEnv(getenv func(string) string) SettingsOption {
	return func(s *SettingsService) { s.getenv = getenv }
}

// WithDefaultPromptsDir sets the prompts directory used when none is configured.
func WithDefaultPromptsDir(dir string) SettingsOption {
	return func(s *SettingsService) { s.promptsDir = dir }
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get resolves the current settings. It does not validate them; callers
// that need a complete configuration call Validate on the result.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProvider(s.getString(keyEmbedProvider, d.Embedding.Provider.String())),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    domain.AIProvider(s.getString(keyLLMProvider, d.LLM.Provider.String())),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxAttempts: s.getInt(keyLLMMaxAttempts, d.LLM.MaxAttempts),
		},
		VectorStore: domain.VectorStoreSettings{
			Dir:     s.getString(keyVectorDir, d.VectorStore.Dir),
			Backend: domain.VectorBackend(s.getString(keyVectorBackend, string(d.VectorStore.Backend))),
			Metric:  domain.Metric(s.getString(keyVectorMetric, d.VectorStore.Metric.String())),
		},
		Retrieval: domain.RetrievalSettings{
			K:               s.getInt(keyRetrievalK, d.Retrieval.K),
			MaxContextChars: s.getInt(keyRetrievalMaxChars, d.Retrieval.MaxContextChars),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize: s.getInt(keyChunkSize, d.Chunker.ChunkSize),
			Overlap:   s.getInt(keyChunkOverlap, d.Chunker.Overlap),
		},
		Index: domain.IndexSettings{
			Patterns:  s.getStrings(keyIndexPatterns, d.Index.Patterns),
			BatchSize: s.getInt(keyIndexBatchSize, d.Index.BatchSize),
		},
		Server: domain.ServerSettings{
			Addr:    s.getString(keyServerAddr, d.Server.Addr),
			DocsDir: s.getString(keyServerDocsDir, d.Server.DocsDir),
		},
		PromptsDir: s.getString(keyPromptsDir, s.promptsDir),
	}

	s.applyEnv(settings)

	// Models default per provider, so they resolve after the provider is final.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])
	}

	return settings, nil
}

// applyEnv overlays environment variables. Model variables set here win
// over the config file; provider-specific credentials apply only to the
// matching provider.
func (s *SettingsService) applyEnv(settings *domain.Settings) {
	if v := s.env(EnvVectorDir); v != "" {
		settings.VectorStore.Dir = v
	}
	if v := s.env(EnvVectorBackend); v != "" {
		settings.VectorStore.Backend = domain.VectorBackend(v)
	}
	if v := s.env(EnvDocsDir); v != "" {
		settings.Server.DocsDir = v
	}
	if v := s.env(EnvEmbeddingProvider); v != "" {
		settings.Embedding.Provider = domain.AIProvider(v)
	}
	if v := s.env(EnvLLMProvider); v != "" {
		settings.LLM.Provider = domain.AIProvider(v)
	}
	if v := s.env(EnvEmbeddingModel); v != "" {
		settings.Embedding.Model = v
	}

	switch settings.LLM.Provider {
	case domain.AIProviderAnthropic:
		if v := s.env(EnvAnthropicAPIKey); v != "" {
			settings.LLM.APIKey = v
		}
		if v := s.env(EnvAnthropicModel); v != "" {
			settings.LLM.Model = v
		}
	case domain.AIProviderOpenAI:
		if v := s.env(EnvOpenAIAPIKey); v != "" {
			settings.LLM.APIKey = v
		}
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI {
		if v := s.env(EnvOpenAIAPIKey); v != "" {
			settings.Embedding.APIKey = v
		}
	}
}

// Set stores a configuration value by dotted key. String values are
// converted to the key's type so command-line input can be passed as is.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := knownKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	converted, err := convertValue(key, kind, value)
	if err != nil {
		return err
	}
	if err := s.configStore.Set(key, converted); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// ConfigPath returns the configuration file location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func convertValue(key string, kind valueKind, value any) (any, error) {
	str, isString := value.(string)
	if !isString {
		return value, nil
	}
	str = strings.TrimSpace(str)

	switch kind {
	case kindInt:
		n, err := strconv.Atoi(str)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidInput, key, str)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidInput, key, str)
		}
		return f, nil
	case kindStrings:
		var out []string
		for _, part := range strings.Split(str, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return str, nil
	}
}

func (s *SettingsService) env(name string) string {
	return strings.TrimSpace(s.getenv(name))
}

// getString returns a string value or the default if empty.
func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt returns an int value or the default if unset or zero.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.configStore.GetInt(key); val != 0 {
		return val
	}
	return defaultVal
}

// getFloat returns a float value or the default if unset. Zero is a valid value.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetFloat(key)
	}
	return defaultVal
}

// getStrings returns a string slice or a copy of the default if empty.
func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return append([]string(nil), defaultVal...)
}
