// Package markdown loads Markdown files.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Loader handles Markdown documents.
// Content is kept verbatim so citations show the original formatting.
type Loader struct{}

// New creates a new Markdown loader.
func New() *Loader {
	return &Loader{}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "markdown"
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Load converts a markdown file into a document.
func (l *Loader) Load(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := bytes.TrimPrefix(raw.Content, bom)
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrDocumentLoad, raw.SourceID)
	}
	text := string(content)

	return &domain.Document{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw.SourceID)).String(),
		SourceID: raw.SourceID,
		URI:      raw.URI,
		Title:    extractMarkdownTitle(text, raw.URI),
		Content:  text,
		Metadata: map[string]any{
			"format": "markdown",
			"size":   len(raw.Content),
		},
	}, nil
}

// extractMarkdownTitle returns the first H1 heading, or a title built
// from the filename.
func extractMarkdownTitle(content, uri string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
