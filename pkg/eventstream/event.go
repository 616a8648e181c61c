package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeChunksIngested is emitted after a document's chunks are
	// durably committed to both the chunk store and the vector index.
	EventTypeChunksIngested = "quarry.chunks.ingested"
)

// ChunksIngestedEvent is a transport-neutral event payload for an ingested
// document. Consumers can use it to trigger downstream reprocessing or audit.
type ChunksIngestedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Ingest        IngestMeta  `json:"ingest"`
}

// EventSource identifies where the ingestion originated.
type EventSource struct {
	Project  string `json:"project,omitempty"`
	Pipeline string `json:"pipeline"`
}

// IngestMeta captures what was committed for the document.
type IngestMeta struct {
	DocID      string   `json:"doc_id"`
	ChunkIDs   []string `json:"chunk_ids"`
	ChunkCount int      `json:"chunk_count"`
	Model      string   `json:"model,omitempty"`
	Dimensions uint     `json:"dimensions,omitempty"`
}
