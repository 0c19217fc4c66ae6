// Package sqlite provides a SQLite-backed vector index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Vectors are stored as little-endian float32 blobs; index dimension, metric
// and embedding model live in the index_meta table.
//
// # Data Location
//
// The database is stored at <vector dir>/index.db. Persist builds a fresh
// database next to it and renames it into place, so readers never observe
// a half-written index.
//
// # Thread Safety
//
// Search runs against the in-memory copy loaded by Load and is safe for
// concurrent use. Persist, Load and Purge are build-time operations.
package sqlite
