package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/core/services"
)

// mockSettingsService is an in-memory SettingsService.
type mockSettingsService struct {
	mu       sync.Mutex
	settings domain.Settings
	values   map[string]any
	getErr   error
	setErr   error
}

func newMockSettingsService(t *testing.T) *mockSettingsService {
	t.Helper()
	s := domain.DefaultSettings()
	s.LLM.APIKey = "sk-ant-test-key-123456"
	s.VectorStore.Dir = t.TempDir()
	s.PromptsDir = t.TempDir()
	return &mockSettingsService{settings: s, values: map[string]any{}}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) ConfigPath() string {
	return "/tmp/kbase/config.toml"
}

// stubRetriever returns fixed chunks.
type stubRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (r *stubRetriever) Retrieve(_ context.Context, _ string) ([]domain.RetrievedChunk, error) {
	return r.chunks, r.err
}

// stubLLM answers every prompt with the same text and records the prompt.
type stubLLM struct {
	mu     sync.Mutex
	answer string
	err    error
	prompt string
	closed bool
}

func (l *stubLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompt = prompt
	return l.answer, l.err
}

func (l *stubLLM) ModelName() string { return "stub" }

func (l *stubLLM) Ping(_ context.Context) error { return nil }

func (l *stubLLM) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// stubIndexer records the build request.
type stubIndexer struct {
	req    domain.BuildRequest
	called bool
	report *domain.BuildReport
	err    error
}

func (i *stubIndexer) Build(_ context.Context, req domain.BuildRequest) (*domain.BuildReport, error) {
	i.called = true
	i.req = req
	return i.report, i.err
}

var _ driving.IndexService = (*stubIndexer)(nil)

func sampleChunks() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			Chunk: domain.Chunk{ID: "guide.md#0", SourceID: "guide.md", Index: 0, Text: "Rotate keys with kbase-keys rotate."},
			Score: 0.91,
			Rank:  1,
		},
	}
}

// cliHarness swaps every composition seam for the duration of a test.
type cliHarness struct {
	settings *mockSettingsService
	llm      *stubLLM
	retr     *stubRetriever
	indexer  *stubIndexer
	buildErr error
	released bool
	out      *bytes.Buffer
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	h := &cliHarness{
		settings: newMockSettingsService(t),
		llm:      &stubLLM{answer: "Use the rotate command [^1]."},
		retr:     &stubRetriever{chunks: sampleChunks()},
		indexer:  &stubIndexer{report: &domain.BuildReport{Documents: 2, Chunks: 7, Dir: "/data/index"}},
		out:      new(bytes.Buffer),
	}

	origSettings := settingsService
	origChain := newChainBuilder
	origIndexer := newIndexer
	origTerminal := isTerminal
	origServer := runServer
	origApp := runApp
	origValidator := configValidator

	settingsService = h.settings
	newChainBuilder = func(prompts driven.PromptStore) services.ChainBuilder {
		return func(_ context.Context, _ *domain.Settings) (*services.GenerationChain, error) {
			if h.buildErr != nil {
				return nil, h.buildErr
			}
			return services.NewGenerationChain(h.retr, h.llm, prompts, services.ChainConfig{
				OnClose: h.llm.Close,
			}), nil
		}
	}
	newIndexer = func(_ context.Context, _ *domain.Settings) (driving.IndexService, func(), error) {
		return h.indexer, func() { h.released = true }, nil
	}
	isTerminal = func() bool { return false }

	indexClean, indexYes, indexPatterns = false, false, nil
	askJSON = false
	serveAddr, serveDocs = "", ""

	rootCmd.SetOut(h.out)
	rootCmd.SetErr(new(bytes.Buffer))

	t.Cleanup(func() {
		settingsService = origSettings
		newChainBuilder = origChain
		newIndexer = origIndexer
		isTerminal = origTerminal
		runServer = origServer
		runApp = origApp
		configValidator = origValidator
		indexClean, indexYes, indexPatterns = false, false, nil
		askJSON = false
		serveAddr, serveDocs = "", ""
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return h
}

func (h *cliHarness) run(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

var errBoom = errors.New("boom")
