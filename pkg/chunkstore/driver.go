// Package chunkstore provides the durable, append-only record of every chunk
// ever ingested. The store is independent of the vector index and is the
// source of truth for audits and full re-indexing.
package chunkstore

import (
	"context"

	"github.com/quarrylabs/quarry/pkg/chunk"
)

// Driver persists ingested chunks in insertion order.
type Driver interface {
	// Append durably adds chunks to the store, preserving order. The new
	// chunks are committed before Append returns.
	Append(ctx context.Context, chunks []chunk.Chunk) error

	// All returns every stored chunk in insertion order.
	All(ctx context.Context) ([]chunk.Chunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
