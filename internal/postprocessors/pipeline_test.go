package postprocessors

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

const handbook = `# Onboarding

Welcome to the team. Your laptop ships on day one.

## Accounts

Request VPN access from IT. Expense reports go through the finance portal,
which needs a manager approval.

## Holidays

Staff get twenty-five days of leave. Unused days roll over until March.
`

func defaultPipeline(t *testing.T, chunkSize, overlap int) *Pipeline {
	t.Helper()

	r := NewRegistry()
	RegisterDefaults(r)

	settings := domain.DefaultSettings()
	settings.Chunker = domain.ChunkerSettings{ChunkSize: chunkSize, Overlap: overlap}

	p, err := BuildPipeline(r, settings.PipelineConfig())
	if err != nil {
		t.Fatalf("BuildPipeline failed: %v", err)
	}
	return p
}

func TestPipeline_MarkdownSpans(t *testing.T) {
	p := defaultPipeline(t, 80, 20)
	doc := &domain.Document{SourceID: "guides/onboarding.md", Content: handbook}

	chunks, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected the handbook to split into several chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: index %d", i, c.Index)
		}
		if c.SourceID != doc.SourceID {
			t.Errorf("chunk %d: source %q", i, c.SourceID)
		}
		if got := doc.Content[c.CharStart:c.CharEnd]; got != c.Text {
			t.Errorf("chunk %d: text %q does not match span %q", i, c.Text, got)
		}
	}

	var sawHolidays bool
	for _, c := range chunks {
		if strings.Contains(c.Text, "twenty-five days") {
			sawHolidays = true
		}
	}
	if !sawHolidays {
		t.Error("expected a chunk covering the holidays section")
	}
}

func TestPipeline_ChunkIDsStableAndUnique(t *testing.T) {
	doc := &domain.Document{SourceID: "guides/onboarding.md", Content: handbook}

	first, err := defaultPipeline(t, 80, 20).Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := defaultPipeline(t, 80, 20).Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	ids := func(chunks []domain.Chunk) []string {
		out := make([]string, len(chunks))
		for i, c := range chunks {
			out[i] = c.ID
		}
		return out
	}
	if !slices.Equal(ids(first), ids(second)) {
		t.Errorf("chunk IDs changed between runs:\n%v\n%v", ids(first), ids(second))
	}

	seen := make(map[string]bool)
	for _, id := range ids(first) {
		if seen[id] {
			t.Errorf("duplicate chunk ID %s", id)
		}
		seen[id] = true
	}

	// Same content under another path must not collide.
	moved, err := defaultPipeline(t, 80, 20).Process(context.Background(),
		&domain.Document{SourceID: "archive/onboarding.md", Content: handbook})
	if err != nil {
		t.Fatalf("moved run failed: %v", err)
	}
	if moved[0].ID == first[0].ID {
		t.Error("expected chunk IDs to depend on the source path")
	}
}

func TestPipeline_ShortDocumentIsOneChunk(t *testing.T) {
	p := defaultPipeline(t, 500, 50)
	doc := &domain.Document{SourceID: "faq.md", Content: "# FAQ\n\nAsk in #help."}

	chunks, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != doc.Content {
		t.Errorf("expected the whole document as one chunk, got %+v", chunks)
	}
}

func TestPipeline_BlankDocument(t *testing.T) {
	p := defaultPipeline(t, 500, 50)

	chunks, err := p.Process(context.Background(), &domain.Document{SourceID: "empty.md", Content: "  \n\n "})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank content, got %d", len(chunks))
	}
}

func TestPipeline_NilDocument(t *testing.T) {
	_, err := defaultPipeline(t, 500, 50).Process(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPipeline_NoStages(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), &domain.Document{SourceID: "a.md", Content: "x"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := defaultPipeline(t, 500, 50).Process(ctx, &domain.Document{SourceID: "a.md", Content: handbook})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// stageFunc adapts a function to a named stage.
type stageFunc struct {
	name string
	fn   func(doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return s.fn(doc, chunks)
}

func TestPipeline_StageErrorNamesDocumentAndStage(t *testing.T) {
	boom := errors.New("boom")
	p := defaultPipeline(t, 80, 20)
	p.Use(stageFunc{name: "dedupe", fn: func(*domain.Document, []domain.Chunk) ([]domain.Chunk, error) {
		return nil, boom
	}})

	_, err := p.Process(context.Background(), &domain.Document{SourceID: "guides/onboarding.md", Content: handbook})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "guides/onboarding.md: dedupe") {
		t.Errorf("expected error to name document and stage, got %q", err)
	}
}

func TestPipeline_RejectsBrokenSpans(t *testing.T) {
	tests := []struct {
		name  string
		alter func(chunks []domain.Chunk) []domain.Chunk
	}{
		{
			name: "rewritten text",
			alter: func(chunks []domain.Chunk) []domain.Chunk {
				chunks[0].Text = strings.ToLower(chunks[0].Text)
				return chunks
			},
		},
		{
			name: "span past end",
			alter: func(chunks []domain.Chunk) []domain.Chunk {
				chunks[len(chunks)-1].CharEnd = len(handbook) + 1
				return chunks
			},
		},
		{
			name: "dropped chunk",
			alter: func(chunks []domain.Chunk) []domain.Chunk {
				return chunks[1:]
			},
		},
		{
			name: "foreign source",
			alter: func(chunks []domain.Chunk) []domain.Chunk {
				chunks[0].SourceID = "other.md"
				return chunks
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultPipeline(t, 80, 20)
			p.Use(stageFunc{name: "mangle", fn: func(_ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
				return tt.alter(chunks), nil
			}})

			_, err := p.Process(context.Background(), &domain.Document{SourceID: "guides/onboarding.md", Content: handbook})
			if err == nil {
				t.Error("expected broken chunk spans to be rejected")
			}
		})
	}
}

func TestPipeline_Stages(t *testing.T) {
	p := defaultPipeline(t, 80, 20)
	p.Use(stageFunc{name: "dedupe"})

	if got := p.Stages(); !slices.Equal(got, []string{"chunker", "dedupe"}) {
		t.Errorf("unexpected stages %v", got)
	}
}
