// Package domain defines the core business entities for kbase.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A loaded source document
//   - Chunk: A retrievable slice of a document
//   - IndexEntry: A chunk with its embedding vector
//   - RetrievedChunk: A ranked search hit used for citations
//   - AnswerResult: The answer and the context it was grounded on
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
