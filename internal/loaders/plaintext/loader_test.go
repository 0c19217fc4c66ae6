package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestNew(t *testing.T) {
	loader := New()
	require.NotNil(t, loader)
	assert.Equal(t, "plaintext", loader.Name())
	assert.Contains(t, loader.Extensions(), ".txt")
}

func TestLoad_Success(t *testing.T) {
	raw := &domain.RawDocument{
		SourceID:  "notes/meeting_notes.txt",
		URI:       "/docs/notes/meeting_notes.txt",
		Extension: ".txt",
		Content:   []byte("Line one\r\nLine two\n"),
	}

	doc, err := New().Load(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "notes/meeting_notes.txt", doc.SourceID)
	assert.Equal(t, "meeting notes", doc.Title)
	assert.Equal(t, "Line one\r\nLine two\n", doc.Content)
	assert.Equal(t, "text", doc.Metadata["format"])
	assert.Equal(t, len(raw.Content), doc.Metadata["size"])
}

func TestLoad_Empty(t *testing.T) {
	doc, err := New().Load(context.Background(), &domain.RawDocument{SourceID: "e.txt"})
	require.NoError(t, err)
	assert.Empty(t, doc.Content)
}

func TestLoad_InvalidUTF8(t *testing.T) {
	_, err := New().Load(context.Background(), &domain.RawDocument{SourceID: "b.txt", Content: []byte{0xc3, 0x28}})
	assert.ErrorIs(t, err, domain.ErrDocumentLoad)
}

func TestLoad_Nil(t *testing.T) {
	_, err := New().Load(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
