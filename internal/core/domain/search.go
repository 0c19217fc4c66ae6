package domain

// RetrievedChunk is a ranked search hit.
// Rank starts at 1 and determines the citation number.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
	Rank  int
}

// AnswerResult is returned to the caller of the generation chain.
// It is not persisted.
type AnswerResult struct {
	// Answer is the model completion as plain text.
	Answer string `json:"answer"`

	// Context is the citation-annotated context the answer was grounded on.
	Context string `json:"context"`
}

// BuildRequest configures an index build.
type BuildRequest struct {
	// DocsDir is the root directory to load documents from.
	DocsDir string

	// Patterns are glob patterns matched against relative paths.
	// Empty means the configured default.
	Patterns []string

	// Clean purges the persisted index before building.
	Clean bool
}

// DocumentFailure records a document that was skipped during a build.
type DocumentFailure struct {
	SourceID string
	Err      error
}

// BuildReport summarises a completed index build.
type BuildReport struct {
	// Documents is the number of documents that were loaded and chunked.
	Documents int

	// Chunks is the total number of chunks indexed.
	Chunks int

	// Failures lists documents that could not be loaded.
	Failures []DocumentFailure

	// Dir is the persisted index location.
	Dir string
}
