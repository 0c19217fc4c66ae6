// Package chunker provides a recursive character text splitter.
package chunker

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Name identifies the chunker in pipeline configuration.
const Name = "chunker"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("kbase/chunk"))

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker processor. An overlap that is not strictly
// smaller than the chunk size fails with domain.ErrConfiguration.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := validate(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	spans, err := Split(doc.Content, p.chunkSize, p.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:        ChunkID(doc.SourceID, i),
			SourceID:  doc.SourceID,
			Index:     i,
			Text:      doc.Content[sp.Start:sp.End],
			CharStart: sp.Start,
			CharEnd:   sp.End,
		})
	}
	return chunks, nil
}

// ChunkID returns the stable identifier of a chunk position.
func ChunkID(sourceID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(sourceID+"#"+strconv.Itoa(index))).String()
}
