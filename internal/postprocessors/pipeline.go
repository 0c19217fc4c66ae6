// Package postprocessors turns loaded documents into chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs a document through its stages in order and verifies that
// the chunks it ends with still point back into the document: indexes are
// sequential from 0 and Text equals Content[CharStart:CharEnd]. Citations
// are built from those offsets, so a stage that breaks them fails the
// document rather than the answer.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline returns a pipeline running stages in the given order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Use appends a stage.
func (p *Pipeline) Use(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process chunks doc. The first stage receives nil chunks.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}
	if len(p.stages) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no stages", domain.ErrConfiguration)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", doc.SourceID, stage.Name(), err)
		}
	}

	if err := checkSpans(doc, chunks); err != nil {
		return nil, err
	}

	logger.Debug("pipeline: %s produced %d chunks", doc.SourceID, len(chunks))
	return chunks, nil
}

func checkSpans(doc *domain.Document, chunks []domain.Chunk) error {
	for i, c := range chunks {
		switch {
		case c.Index != i:
			return fmt.Errorf("%s: chunk %d has index %d", doc.SourceID, i, c.Index)
		case c.SourceID != doc.SourceID:
			return fmt.Errorf("%s: chunk %d belongs to %q", doc.SourceID, i, c.SourceID)
		case c.CharStart < 0 || c.CharStart > c.CharEnd || c.CharEnd > len(doc.Content):
			return fmt.Errorf("%s: chunk %d span [%d,%d) outside content of %d bytes",
				doc.SourceID, i, c.CharStart, c.CharEnd, len(doc.Content))
		case doc.Content[c.CharStart:c.CharEnd] != c.Text:
			return fmt.Errorf("%s: chunk %d text does not match span [%d,%d)",
				doc.SourceID, i, c.CharStart, c.CharEnd)
		}
	}
	return nil
}
