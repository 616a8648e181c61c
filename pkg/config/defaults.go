package config

import (
	"github.com/quarrylabs/quarry/pkg/chunk"
)

const (
	defaultStorageProvider = "jsonfile"
	defaultStoragePath     = "chunk_data.json"

	defaultAPIListen = ":8080"

	defaultVectorProvider = "sqlitevec"
	defaultVectorPath     = "vectors.db"
	defaultChromaTarget   = "http://localhost:8000"
	defaultCollection     = "document_chunks"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultAnswerProvider = "ollama"
	defaultAnswerModel    = "llama3.2"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "quarry.ingest.events"

	defaultIngestWorkers = 3
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
			Path:     defaultStoragePath,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Path:       defaultVectorPath,
			Target:     defaultChromaTarget,
			Collection: defaultCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Answer: AnswerConfig{
			Enabled:  false,
			Provider: defaultAnswerProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultAnswerModel,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Ingest: IngestConfig{
			Workers:      defaultIngestWorkers,
			ChunkSize:    chunk.DefaultChunkSize,
			ChunkOverlap: chunk.DefaultOverlap,
		},
	}
}
