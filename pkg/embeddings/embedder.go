// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities. The same embedder (model and
// version) must serve both the ingestion and query paths of one index:
// vectors from different models are not comparable and mixing them silently
// corrupts similarity semantics.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into vector embeddings, one per input text,
	// in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the configured embedding dimensionality.
	Dimensions() uint

	// Close releases any resources held by the embedder.
	Close() error
}
