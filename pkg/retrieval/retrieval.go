// Package retrieval orchestrates query-time search: embed the query text,
// search the vector index, and assemble ranked matches with provenance.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/embeddings"
	"github.com/quarrylabs/quarry/pkg/vector"
)

const (
	// DefaultTopK is the number of matches returned when the caller does
	// not ask for a specific k.
	DefaultTopK = 3

	// NotAvailable is substituted for provenance fields missing from an
	// index record. A single malformed record never aborts the query.
	NotAvailable = "not available"
)

// Match is one ranked retrieval result.
type Match struct {
	Text      string  `json:"chunk_text"`
	DocID     string  `json:"doc_id"`
	Page      int     `json:"page"`
	Paragraph int     `json:"paragraph"`
	Score     float32 `json:"score"`
}

// Source renders the provenance of a match for citations and logs.
func (m Match) Source() string {
	return fmt.Sprintf("[%s, page %d, para %d]", m.DocID, m.Page, m.Paragraph)
}

// Retriever is the stateless query-time service. Each query embeds the text
// with the same model used at ingestion, searches the index, and returns
// matches in the index's nearest-first order. Ties keep index order; no
// secondary sort is applied.
type Retriever struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the given embedder and vector driver.
func NewRetriever(embedder embeddings.Embedder, driver vector.Driver, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		driver:   driver,
		logger:   logger,
	}
}

// QueryTopK returns up to k matches for the query text, nearest first.
// Scores are 1 - cosine distance, so higher is better. Querying an empty
// index returns an empty slice, not an error.
func (r *Retriever) QueryTopK(ctx context.Context, query string, k int) ([]Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidArgument, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrInvalidArgument)
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.driver.Query(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		match := Match{
			Text:      result.Text,
			DocID:     result.Meta.DocID,
			Page:      result.Meta.Page,
			Paragraph: result.Meta.Paragraph,
			Score:     result.Score,
		}
		if match.DocID == "" {
			match.DocID = NotAvailable
		}
		matches = append(matches, match)
	}

	r.logger.Debug("retrieved matches",
		zap.String("query", query),
		zap.Int("k", k),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}
