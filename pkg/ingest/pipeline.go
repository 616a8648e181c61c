// Package ingest wires chunking, the chunk store, the embedder and the
// vector index into one pipeline. A chunk is retrievable only once both its
// audit record and its vector are committed, in that order.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore"
	"github.com/quarrylabs/quarry/pkg/embeddings"
	"github.com/quarrylabs/quarry/pkg/eventstream"
	"github.com/quarrylabs/quarry/pkg/vector"
)

// Pipeline ingests chunks: validate, append to the chunk store, embed, then
// upsert into the vector index.
type Pipeline struct {
	store     chunkstore.Driver
	embedder  embeddings.Embedder
	vectors   vector.Driver
	publisher eventstream.Publisher
	chunker   chunk.Chunker
	model     string
	logger    *zap.Logger
}

// Config holds the collaborators for an ingest pipeline.
type Config struct {
	// Store is the durable append-only chunk record.
	Store chunkstore.Driver

	// Embedder computes chunk and query vectors.
	Embedder embeddings.Embedder

	// Vectors is the searchable index.
	Vectors vector.Driver

	// Publisher receives an event after each successful ingest.
	// Optional; publish failures are logged, never surfaced.
	Publisher eventstream.Publisher

	// Chunker splits raw document text. Zero value uses the defaults.
	Chunker chunk.Chunker

	// Model names the embedding model for event payloads.
	Model string

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// NewPipeline creates a new ingest pipeline.
func NewPipeline(c Config) (*Pipeline, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("chunk store is required")
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.Vectors == nil {
		return nil, fmt.Errorf("vector driver is required")
	}
	if c.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Pipeline{
		store:     c.Store,
		embedder:  c.Embedder,
		vectors:   c.Vectors,
		publisher: c.Publisher,
		chunker:   c.Chunker,
		model:     c.Model,
		logger:    c.Logger,
	}, nil
}

// IngestText splits a document's raw text and ingests the resulting chunks.
func (p *Pipeline) IngestText(ctx context.Context, docID, text string) (int, error) {
	return p.Ingest(ctx, p.chunker.Split(docID, text))
}

// IngestPages splits per-page text (e.g. from a PDF) and ingests the chunks.
func (p *Pipeline) IngestPages(ctx context.Context, docID string, pages []string) (int, error) {
	return p.Ingest(ctx, p.chunker.SplitPages(docID, pages))
}

// Ingest commits a batch of chunks. The whole batch is validated first, then
// appended to the chunk store, embedded, and upserted into the index. Returns
// the number of chunks committed.
func (p *Pipeline) Ingest(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := chunk.ValidateAll(chunks); err != nil {
		return 0, fmt.Errorf("validating chunks: %w", err)
	}

	if err := p.store.Append(ctx, chunks); err != nil {
		return 0, fmt.Errorf("appending to chunk store: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]vector.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vector.Document{
			ID:        c.ID(),
			Text:      c.Text,
			Embedding: vectors[i],
			Meta: vector.Metadata{
				DocID:     c.DocID,
				Page:      c.Page,
				Paragraph: c.Paragraph,
			},
		}
	}

	if err := p.vectors.Upsert(ctx, docs); err != nil {
		// The chunks are already durable in the store at this point, so
		// callers can safely re-ingest the document to repair the index.
		return 0, fmt.Errorf("upserting vectors (chunks already recorded in chunk store, re-ingest to repair the index): %w", err)
	}

	p.logger.Info("ingested chunks",
		zap.String("doc_id", chunks[0].DocID),
		zap.Int("count", len(chunks)),
	)

	p.publish(ctx, chunks)

	return len(chunks), nil
}

// publish emits a ChunksIngestedEvent. Best-effort: the chunks are already
// durable, so a publish failure is only logged.
func (p *Pipeline) publish(ctx context.Context, chunks []chunk.Chunk) {
	if p.publisher == nil {
		return
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID()
	}

	event := &eventstream.ChunksIngestedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeChunksIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: eventstream.EventSource{
			Pipeline: "quarry",
		},
		Ingest: eventstream.IngestMeta{
			DocID:      chunks[0].DocID,
			ChunkIDs:   ids,
			ChunkCount: len(chunks),
			Model:      p.model,
			Dimensions: p.embedder.Dimensions(),
		},
	}

	if err := p.publisher.PublishIngest(ctx, event); err != nil {
		p.logger.Warn("failed to publish ingest event",
			zap.String("doc_id", event.Ingest.DocID),
			zap.Error(err),
		)
	}
}
