package domain

import (
	"fmt"
	"strings"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the in-process embedding model.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderLocal || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (in-process)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `yaml:"provider"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is the API key (for OpenAI).
	APIKey string `yaml:"api_key,omitempty"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Model == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `yaml:"provider"`

	// Model is the LLM model name.
	Model string `yaml:"model"`

	// BaseURL is the API endpoint override.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string `yaml:"api_key,omitempty"`

	// MaxTokens bounds the completion length.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the fixed sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// MaxAttempts is the total number of tries for a transient failure.
	MaxAttempts int `yaml:"max_attempts"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Model == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index storage implementation.
type VectorBackend string

// Available vector index backends.
const (
	// VectorBackendSQLite persists entries in a SQLite database file.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendBolt persists entries in a bbolt database file.
	VectorBackendBolt VectorBackend = "bolt"

	// VectorBackendMemory keeps entries in memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendBolt, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// VectorStoreSettings holds vector index configuration.
type VectorStoreSettings struct {
	// Dir is the persisted vector-store directory.
	Dir string `yaml:"dir"`

	// Backend is the storage implementation.
	Backend VectorBackend `yaml:"backend"`

	// Metric is the similarity metric used at build and query time.
	Metric Metric `yaml:"metric"`
}

// RetrievalSettings holds query-time retrieval configuration.
type RetrievalSettings struct {
	// K is the number of chunks retrieved per question.
	K int `yaml:"k"`

	// MaxContextChars bounds the assembled context handed to the model.
	// Zero disables the bound.
	MaxContextChars int `yaml:"max_context_chars"`
}

// ChunkerSettings holds the text splitter configuration.
type ChunkerSettings struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// Validate checks the overlap is strictly smaller than the chunk size.
func (c ChunkerSettings) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d",
			ErrConfiguration, c.Overlap, c.ChunkSize)
	}
	return nil
}

// IndexSettings holds offline indexing configuration.
type IndexSettings struct {
	// Patterns are the glob patterns selecting documents under the docs root.
	Patterns []string `yaml:"patterns"`

	// BatchSize is the number of chunks embedded per request.
	BatchSize int `yaml:"batch_size"`
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`

	// DocsDir is the directory served under /sources.
	DocsDir string `yaml:"docs_dir"`
}

// Settings holds all resolved application settings.
type Settings struct {
	Embedding   EmbeddingSettings   `yaml:"embedding"`
	LLM         LLMSettings         `yaml:"llm"`
	VectorStore VectorStoreSettings `yaml:"vector_store"`
	Retrieval   RetrievalSettings   `yaml:"retrieval"`
	Chunker     ChunkerSettings     `yaml:"chunker"`
	Index       IndexSettings       `yaml:"index"`
	Server      ServerSettings      `yaml:"server"`

	// PromptsDir holds user prompt template overrides.
	PromptsDir string `yaml:"prompts_dir"`
}

// DefaultSettings returns settings with sensible defaults.
// The LLM credential is left empty and must come from config or environment.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderLocal,
			Model:    DefaultEmbeddingModels()[AIProviderLocal],
		},
		LLM: LLMSettings{
			Provider:    AIProviderAnthropic,
			Model:       DefaultLLMModels()[AIProviderAnthropic],
			MaxTokens:   1024,
			Temperature: 0.2,
			MaxAttempts: 3,
		},
		VectorStore: VectorStoreSettings{
			Dir:     "./vector_store",
			Backend: VectorBackendSQLite,
			Metric:  MetricCosine,
		},
		Retrieval: RetrievalSettings{
			K:               4,
			MaxContextChars: 12000,
		},
		Chunker: ChunkerSettings{
			ChunkSize: 500,
			Overlap:   50,
		},
		Index: IndexSettings{
			Patterns:  []string{"**/*.md"},
			BatchSize: 64,
		},
		Server: ServerSettings{
			Addr:    ":8000",
			DocsDir: "./docs",
		},
	}
}

// ValidateIndexing checks the settings needed to build an index.
func (s Settings) ValidateIndexing() error {
	var problems []string
	if !s.Embedding.IsConfigured() {
		problems = append(problems, fmt.Sprintf("embedding provider %q is not configured", s.Embedding.Provider))
	}
	if s.VectorStore.Dir == "" && s.VectorStore.Backend != VectorBackendMemory {
		problems = append(problems, "vector store directory is required")
	}
	if !s.VectorStore.Backend.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown vector backend %q", s.VectorStore.Backend))
	}
	if !s.VectorStore.Metric.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown similarity metric %q", s.VectorStore.Metric))
	}
	if err := s.Chunker.Validate(); err != nil {
		problems = append(problems, strings.TrimPrefix(err.Error(), ErrConfiguration.Error()+": "))
	}
	if s.Index.BatchSize <= 0 {
		problems = append(problems, "index batch size must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks the settings needed to answer questions.
// A missing credential or model identifier is fatal at startup.
func (s Settings) Validate() error {
	if err := s.ValidateIndexing(); err != nil {
		return err
	}
	var problems []string
	if !s.LLM.Provider.IsValid() || s.LLM.Provider == AIProviderLocal {
		problems = append(problems, fmt.Sprintf("unknown LLM provider %q", s.LLM.Provider))
	} else {
		if s.LLM.Model == "" {
			problems = append(problems, "LLM model identifier is required")
		}
		if s.LLM.Provider.RequiresAPIKey() && s.LLM.APIKey == "" {
			problems = append(problems, fmt.Sprintf("API key for %s is required", s.LLM.Provider.Description()))
		}
	}
	if s.Retrieval.K <= 0 {
		problems = append(problems, "retrieval k must be positive")
	}
	if s.LLM.MaxAttempts <= 0 {
		problems = append(problems, "LLM max attempts must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy with credentials masked for display.
func (s Settings) Redacted() Settings {
	out := s
	out.Embedding.APIKey = redact(s.Embedding.APIKey)
	out.LLM.APIKey = redact(s.LLM.APIKey)
	out.Index.Patterns = append([]string(nil), s.Index.Patterns...)
	return out
}

func redact(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderAnthropic,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hash-384",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-haiku-20240307",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Local models
		"hash-384": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfig returns the chunking pipeline for these settings.
func (s Settings) PipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": s.Chunker.ChunkSize,
				"overlap":    s.Chunker.Overlap,
			},
		},
	}
}
