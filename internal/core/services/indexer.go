package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 64

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	// Patterns select documents when a request names none.
	Patterns []string

	// BatchSize is the number of chunks per EmbedBatch call.
	BatchSize int

	// Dir is the persisted index location, reported back to the caller.
	Dir string
}

// Indexer builds the vector index offline. It must not run against a
// directory a live server is reading.
type Indexer struct {
	loaders  driven.LoaderRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	cfg      IndexerConfig
}

// NewIndexer creates an indexer.
func NewIndexer(
	loaders driven.LoaderRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg IndexerConfig,
) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = domain.DefaultSettings().Index.Patterns
	}
	return &Indexer{
		loaders:  loaders,
		pipeline: pipeline,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

// Build loads, chunks, embeds and persists every matching document.
// Per-document load failures are reported and skipped; any embedding or
// persistence failure aborts the build with nothing persisted.
func (s *Indexer) Build(ctx context.Context, req domain.BuildRequest) (*domain.BuildReport, error) {
	logger.Section("Index Build")

	root, err := checkDocsDir(req.DocsDir)
	if err != nil {
		return nil, err
	}

	patterns := req.Patterns
	if len(patterns) == 0 {
		patterns = s.cfg.Patterns
	}
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}

	if err := s.prepareIndex(ctx, req.Clean); err != nil {
		return nil, err
	}

	files, err := findDocuments(root, patterns)
	if err != nil {
		return nil, err
	}
	logger.Info("found %d documents under %s", len(files), root)

	report := &domain.BuildReport{Dir: s.cfg.Dir}
	var chunks []domain.Chunk

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := s.loadDocument(ctx, root, rel)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedType) {
				logger.Debug("skipping %s: %v", rel, err)
				continue
			}
			logger.Warn("skipping %s: %v", rel, err)
			report.Failures = append(report.Failures, domain.DocumentFailure{SourceID: rel, Err: err})
			continue
		}

		docChunks, err := s.pipeline.Process(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", rel, err)
		}
		logger.Debug("%s: %d chunks", rel, len(docChunks))

		report.Documents++
		chunks = append(chunks, docChunks...)
	}

	if err := s.embedAndAdd(ctx, chunks); err != nil {
		s.index.Reset()
		return nil, err
	}

	if err := s.index.Persist(ctx); err != nil {
		return nil, err
	}

	report.Chunks = s.index.Count()
	logger.Info("indexed %d chunks from %d documents into %s", report.Chunks, report.Documents, s.cfg.Dir)
	return report, nil
}

// prepareIndex leaves the in-memory set empty. Without clean, a persisted
// index built by another model must be rejected before any work is done.
func (s *Indexer) prepareIndex(ctx context.Context, clean bool) error {
	if clean {
		logger.Info("purging existing index")
		if err := s.index.Purge(ctx); err != nil {
			return fmt.Errorf("purge index: %w", err)
		}
		return nil
	}

	if err := s.index.Load(ctx); err != nil {
		return err
	}
	info := s.index.Info()
	if err := info.Compatible(s.embedder.ModelName(), s.embedder.Dimensions()); err != nil {
		return fmt.Errorf("%w (rebuild with --clean to replace it)", err)
	}
	s.index.Reset()
	return nil
}

func (s *Indexer) loadDocument(ctx context.Context, root, rel string) (*domain.Document, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDocumentLoad, err)
	}

	raw := &domain.RawDocument{
		SourceID:  rel,
		URI:       full,
		Extension: strings.ToLower(filepath.Ext(rel)),
		Content:   content,
	}
	doc, err := s.loaders.Load(ctx, raw)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentLoad) || errors.Is(err, domain.ErrUnsupportedType) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDocumentLoad, err)
	}
	return doc, nil
}

// embedAndAdd embeds chunks in batches and adds them to the index.
func (s *Indexer) embedAndAdd(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts",
				start, end-1, len(vectors), len(batch))
		}

		entries := make([]domain.IndexEntry, len(batch))
		for i, c := range batch {
			entries[i] = domain.NewIndexEntry(c, vectors[i])
		}
		if err := s.index.Add(ctx, entries); err != nil {
			return err
		}
		logger.Debug("embedded %d/%d chunks", end, len(chunks))
	}
	return nil
}

func checkDocsDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: docs directory is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: docs directory %s: %w", domain.ErrInvalidInput, dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return abs, nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(strings.TrimPrefix(p, "**/"), ""); err != nil {
			return fmt.Errorf("%w: bad pattern %q: %w", domain.ErrInvalidInput, p, err)
		}
	}
	return nil
}

// findDocuments returns the slash-separated paths under root matching any
// pattern, in lexical order.
func findDocuments(root string, patterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			logger.Warn("cannot read %s: %v", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			if MatchPattern(pattern, rel) {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// MatchPattern reports whether the slash-separated relative path matches
// a glob. A leading "**/" matches any number of directories and a
// pattern without a slash matches the base name.
func MatchPattern(pattern, rel string) bool {
	if ok, _ := path.Match(pattern, rel); ok {
		return true
	}
	if rest, found := strings.CutPrefix(pattern, "**/"); found {
		for s := rel; ; {
			if ok, _ := path.Match(rest, s); ok {
				return true
			}
			i := strings.IndexByte(s, '/')
			if i < 0 {
				return false
			}
			s = s[i+1:]
		}
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(rel))
		return ok
	}
	return false
}
