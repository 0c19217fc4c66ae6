package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/postprocessors/chunker"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func noopBuilder(name string) BuilderFunc {
	return func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: name}, nil
	}
}

func TestRegistry_RegisterAndHas(t *testing.T) {
	r := NewRegistry()
	if r.Has("dedupe") {
		t.Fatal("empty registry reports dedupe")
	}

	r.Register("dedupe", noopBuilder("dedupe"))

	if !r.Has("dedupe") {
		t.Error("expected dedupe to be registered")
	}
}

func TestRegistry_Register_Panics(t *testing.T) {
	tests := []struct {
		name string
		reg  func(r *Registry)
	}{
		{"duplicate", func(r *Registry) {
			r.Register("dedupe", noopBuilder("dedupe"))
			r.Register("dedupe", noopBuilder("dedupe"))
		}},
		{"nil builder", func(r *Registry) { r.Register("dedupe", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected Register to panic")
				}
			}()
			tt.reg(NewRegistry())
		})
	}
}

func TestRegistry_Build_PassesConfig(t *testing.T) {
	r := NewRegistry()
	r.Register("labeller", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["label"].(string); ok {
			name = n
		}
		return &registryMockProcessor{name: name}, nil
	})

	proc, err := r.Build("labeller", map[string]any{"label": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", proc.Name())
	}
}

func TestRegistry_Build_UnknownListsAvailable(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Build("stemmer", nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: chunker") {
		t.Errorf("error should list registered processors: %v", err)
	}
}

func TestRegistry_Names_Sorted(t *testing.T) {
	r := NewRegistry()
	if len(r.Names()) != 0 {
		t.Errorf("expected no names, got %v", r.Names())
	}

	for _, n := range []string{"gamma", "alpha", "beta"} {
		r.Register(n, noopBuilder(n))
	}

	got := strings.Join(r.Names(), ",")
	if got != "alpha,beta,gamma" {
		t.Errorf("expected sorted names, got %s", got)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	if !r.Has(chunker.Name) {
		t.Error("expected the chunker to be registered after RegisterDefaults")
	}
}

func TestBuildChunker_WithConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	cfg := map[string]any{
		"chunk_size": 500,
		"overlap":    100,
	}

	proc, err := r.Build("chunker", cfg)
	if err != nil {
		t.Fatalf("Build chunker failed: %v", err)
	}

	if proc.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", proc.Name())
	}
}

func TestBuildChunker_WithNilConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	proc, err := r.Build("chunker", nil)
	if err != nil {
		t.Fatalf("Build chunker with nil config failed: %v", err)
	}

	if proc.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", proc.Name())
	}
}

func TestBuildChunker_InvalidConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Build("chunker", map[string]any{"chunk_size": 100, "overlap": 100})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildPipeline(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	settings := domain.DefaultSettings()
	settings.Chunker = domain.ChunkerSettings{ChunkSize: 20, Overlap: 0}

	p, err := BuildPipeline(r, settings.PipelineConfig())
	if err != nil {
		t.Fatalf("BuildPipeline failed: %v", err)
	}
	if got := p.Stages(); len(got) != 1 || got[0] != "chunker" {
		t.Fatalf("expected [chunker], got %v", got)
	}

	doc := &domain.Document{SourceID: "a.md", Content: "alpha beta gamma delta epsilon zeta"}
	chunks, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Errorf("expected the configured chunk size to split the document, got %d chunks", len(chunks))
	}
}

func TestBuildPipeline_UnknownProcessor(t *testing.T) {
	r := NewRegistry()

	_, err := BuildPipeline(r, domain.PipelineConfig{Processors: []string{"stemmer"}})
	if err == nil {
		t.Error("expected error for unknown processor")
	}
}

func TestBuildPipeline_Empty(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := BuildPipeline(r, domain.PipelineConfig{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		key      string
		expected int
		found    bool
	}{
		{"int value", map[string]any{"size": 100}, "size", 100, true},
		{"int64 value", map[string]any{"size": int64(200)}, "size", 200, true},
		{"float64 value", map[string]any{"size": float64(300)}, "size", 300, true},
		{"zero value", map[string]any{"size": 0}, "size", 0, true},
		{"string value", map[string]any{"size": "400"}, "size", 0, false},
		{"missing key", map[string]any{"other": 100}, "size", 0, false},
		{"nil config", nil, "size", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, found := getIntFromConfig(tt.cfg, tt.key)
			if result != tt.expected || found != tt.found {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.expected, tt.found, result, found)
			}
		})
	}
}
