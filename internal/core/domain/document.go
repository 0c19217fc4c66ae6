package domain

// Document is a loaded source document.
// It is immutable once loaded and consumed once by the chunker.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceID is the path of the document relative to the docs root.
	SourceID string

	// URI is the absolute location the document was read from.
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the raw document text, verbatim.
	Content string

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}

// Chunk is a bounded contiguous slice of a document's text.
// Chunks are the unit of indexing and retrieval.
type Chunk struct {
	// ID is deterministic for a given (SourceID, Index) pair.
	ID string

	// SourceID links to the Document that produced this chunk.
	SourceID string

	// Index is the ordinal position within the document, starting at 0.
	Index int

	// Text is the chunk content. Text == Document.Content[CharStart:CharEnd].
	Text string

	// CharStart is the byte offset where the chunk starts.
	CharStart int

	// CharEnd is the byte offset one past the chunk end.
	CharEnd int
}

// Len returns the length of the chunk text in bytes.
func (c Chunk) Len() int {
	return c.CharEnd - c.CharStart
}
