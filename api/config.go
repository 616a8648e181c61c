// Package api provides the HTTP API server for ingesting and querying documents.
package api

import (
	"github.com/quarrylabs/quarry/pkg/answer"
	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore"
	"github.com/quarrylabs/quarry/pkg/ingest/worker"
	"github.com/quarrylabs/quarry/pkg/retrieval"
	"github.com/quarrylabs/quarry/pkg/vector"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Retriever serves /v1/search and /v1/export queries.
	Retriever *retrieval.Retriever

	// Pool accepts asynchronous ingest jobs from /v1/documents.
	Pool *worker.Pool

	// Store backs the chunk count in /v1/stats.
	Store chunkstore.Driver

	// Vectors backs the index count in /v1/stats.
	Vectors vector.Driver

	// Generator optionally synthesizes answers on /v1/search.
	Generator answer.Generator

	// Chunker splits uploaded documents. Zero value uses the defaults.
	Chunker chunk.Chunker
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
