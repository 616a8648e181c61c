package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when a vector's length disagrees
	// with the index's established dimensionality. The affected upsert
	// fails as a whole; committed entries are never corrupted.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
