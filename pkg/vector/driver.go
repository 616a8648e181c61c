// Package vector provides interfaces and implementations for persistent
// nearest-neighbor search over embedded chunks.
package vector

import "context"

// Metadata is the provenance record stored alongside each vector. It mirrors
// the chunk's provenance and must stay consistent with the chunk store.
type Metadata struct {
	// DocID identifies the source document.
	DocID string `json:"doc_id"`

	// Page is the 1-based page within the document.
	Page int `json:"page"`

	// Paragraph is the 1-based paragraph index within the document.
	Paragraph int `json:"paragraph"`
}

// Document is a stored index entry. ID, text, embedding and metadata travel
// together so a committed entry is never missing one of them.
type Document struct {
	// ID is the unique chunk identifier (chunk.Chunk.ID()).
	ID string

	// Text is the raw chunk text, stored in the index itself so query
	// results never depend on a second store lookup.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32

	// Meta is the provenance record for the chunk.
	Meta Metadata
}

// QueryResult is a search hit.
type QueryResult struct {
	Document

	// Distance is the cosine distance to the query vector (lower = more
	// similar).
	Distance float32

	// Score is 1 - Distance. Downstream consumers treat score as "higher
	// is better"; every driver preserves this exact transform.
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Upsert inserts or replaces entries keyed by Document.ID. The call is
	// atomic with respect to partial failure: either every entry becomes
	// queryable or none does. A vector whose length disagrees with the
	// index's dimensionality fails with ErrDimensionMismatch and leaves
	// previously committed entries untouched.
	Upsert(ctx context.Context, docs []Document) error

	// Query finds the topK nearest documents to the given embedding,
	// ordered by ascending distance. Returns fewer than topK results if
	// the index holds fewer entries, and an empty slice (not an error)
	// when the index is empty. Ties in distance keep the backend's return
	// order.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of entries in the index.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
