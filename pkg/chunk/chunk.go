// Package chunk defines the atomic retrievable unit of the quarry system: a
// span of extracted document text plus the provenance needed to cite it.
package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDocID is returned when a chunk has no source document identifier.
	ErrMissingDocID = errors.New("chunk is missing doc_id")

	// ErrEmptyText is returned when a chunk carries no text.
	ErrEmptyText = errors.New("chunk text is empty")

	// ErrBadPosition is returned when page or paragraph is not positive.
	ErrBadPosition = errors.New("chunk page and paragraph must be >= 1")
)

// Chunk is one retrievable span of text with its provenance.
type Chunk struct {
	// DocID identifies the source document. Stable across all chunks of
	// the same document.
	DocID string `json:"doc_id"`

	// Page is the 1-based page (or format-defined segment) the chunk
	// was extracted from.
	Page int `json:"page"`

	// Paragraph is the 1-based paragraph index within the document.
	Paragraph int `json:"paragraph"`

	// Text is the extracted chunk text.
	Text string `json:"chunk_text"`
}

// ID derives the unique chunk identifier from provenance. Two chunks with the
// same (doc_id, page, paragraph) share an ID; re-ingesting such a chunk
// replaces the queryable entry in the vector index.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s:p%d:c%d", c.DocID, c.Page, c.Paragraph)
}

// Validate rejects malformed chunks before they reach the stores.
func (c Chunk) Validate() error {
	if c.DocID == "" {
		return ErrMissingDocID
	}
	if c.Text == "" {
		return ErrEmptyText
	}
	if c.Page < 1 || c.Paragraph < 1 {
		return fmt.Errorf("%w: page=%d paragraph=%d", ErrBadPosition, c.Page, c.Paragraph)
	}
	return nil
}

// ValidateAll validates a batch. The whole batch is rejected on the first
// malformed chunk so a partially-ingestible batch never reaches the stores.
func ValidateAll(chunks []Chunk) error {
	for i, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %d (%s): %w", i, c.ID(), err)
		}
	}
	return nil
}
