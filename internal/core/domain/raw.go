package domain

// RawDocument is the unparsed content of a file found under the docs root.
// It is the loader's input.
type RawDocument struct {
	// SourceID is the path relative to the docs root, using forward slashes.
	SourceID string

	// URI is the absolute file path.
	URI string

	// Extension is the lower-cased file extension including the dot.
	Extension string

	// Content is the raw bytes.
	Content []byte
}
