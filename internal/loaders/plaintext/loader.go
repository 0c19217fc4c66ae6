// Package plaintext loads plain text files.
package plaintext

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

// Loader handles plain text documents.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "plaintext"
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".txt", ".text", ".rst", ".csv", ".log"}
}

// Load converts a text file into a document. Windows line endings are
// kept; only a leading byte order mark is dropped.
func (l *Loader) Load(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := bytes.TrimPrefix(raw.Content, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrDocumentLoad, raw.SourceID)
	}

	return &domain.Document{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw.SourceID)).String(),
		SourceID: raw.SourceID,
		URI:      raw.URI,
		Title:    extractTitle(raw.URI),
		Content:  string(content),
		Metadata: map[string]any{
			"format": "text",
			"size":   len(raw.Content),
		},
	}, nil
}

// extractTitle extracts a human-readable title from a file path.
func extractTitle(uri string) string {
	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
