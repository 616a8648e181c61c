package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent quarry configuration stored as config.toml
// in the .quarry/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Answer      AnswerConfig      `toml:"answer"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// StorageConfig holds chunk store settings.
type StorageConfig struct {
	// Provider selects the chunk store backend: jsonfile, sqlite,
	// postgres or inmemory.
	Provider string `toml:"provider,omitempty"`

	// Path is the backing file for the jsonfile and sqlite providers.
	// Relative paths resolve inside the .quarry/ directory.
	Path string `toml:"path,omitempty"`

	// DSN is the connection string for the postgres provider.
	DSN string `toml:"dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	// Provider selects the index backend: sqlitevec, chroma or qdrant.
	Provider string `toml:"provider,omitempty"`

	// Path is the database file for the sqlitevec provider.
	Path string `toml:"path,omitempty"`

	// Target is the server URL for the chroma provider.
	Target string `toml:"target,omitempty"`

	// Host and Port address the qdrant provider's gRPC endpoint.
	Host string `toml:"host,omitempty"`
	Port int    `toml:"port,omitempty"`

	// APIKey authenticates against hosted qdrant.
	APIKey string `toml:"api_key,omitempty"`

	// Collection names the chroma/qdrant collection.
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// AnswerConfig holds answer synthesis settings.
type AnswerConfig struct {
	Enabled  bool   `toml:"enabled,omitempty"`
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EventStreamConfig holds ingest event publishing settings.
type EventStreamConfig struct {
	// Provider selects the publisher backend: nop or kafka.
	Provider string `toml:"provider,omitempty"`

	// Brokers is the Kafka broker address list.
	Brokers []string `toml:"brokers,omitempty"`

	// Topic is the Kafka topic for ingest events.
	Topic string `toml:"topic,omitempty"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	// WatchDir is an optional drop directory monitored for new documents.
	WatchDir string `toml:"watch_dir,omitempty"`

	// Workers is the number of background ingest workers.
	Workers uint `toml:"workers,omitempty"`

	// ChunkSize is the chunk length in characters.
	ChunkSize int `toml:"chunk_size,omitempty"`

	// ChunkOverlap is the number of characters shared between chunks.
	ChunkOverlap int `toml:"chunk_overlap,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.path": {
		get: func(c *Config) string { return c.Storage.Path },
		set: func(c *Config, v string) error { c.Storage.Path = v; return nil },
	},
	"storage.dsn": {
		get: func(c *Config) string { return c.Storage.DSN },
		set: func(c *Config, v string) error { c.Storage.DSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.path": {
		get: func(c *Config) string { return c.VectorStore.Path },
		set: func(c *Config, v string) error { c.VectorStore.Path = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.host": {
		get: func(c *Config) string { return c.VectorStore.Host },
		set: func(c *Config, v string) error { c.VectorStore.Host = v; return nil },
	},
	"vector_store.port": {
		get: func(c *Config) string {
			if c.VectorStore.Port == 0 {
				return ""
			}
			return strconv.Itoa(c.VectorStore.Port)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for vector_store.port: %w", err)
			}
			c.VectorStore.Port = n
			return nil
		},
	},
	"vector_store.api_key": {
		get: func(c *Config) string { return c.VectorStore.APIKey },
		set: func(c *Config, v string) error { c.VectorStore.APIKey = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"answer.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Answer.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for answer.enabled: %w", err)
			}
			c.Answer.Enabled = b
			return nil
		},
	},
	"answer.provider": {
		get: func(c *Config) string { return c.Answer.Provider },
		set: func(c *Config, v string) error { c.Answer.Provider = v; return nil },
	},
	"answer.target": {
		get: func(c *Config) string { return c.Answer.Target },
		set: func(c *Config, v string) error { c.Answer.Target = v; return nil },
	},
	"answer.api_key": {
		get: func(c *Config) string { return c.Answer.APIKey },
		set: func(c *Config, v string) error { c.Answer.APIKey = v; return nil },
	},
	"answer.model": {
		get: func(c *Config) string { return c.Answer.Model },
		set: func(c *Config, v string) error { c.Answer.Model = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitList(v)
			return nil
		},
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"ingest.watch_dir": {
		get: func(c *Config) string { return c.Ingest.WatchDir },
		set: func(c *Config, v string) error { c.Ingest.WatchDir = v; return nil },
	},
	"ingest.workers": {
		get: func(c *Config) string {
			if c.Ingest.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Ingest.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.workers: %w", err)
			}
			c.Ingest.Workers = uint(n)
			return nil
		},
	},
	"ingest.chunk_size": {
		get: func(c *Config) string {
			if c.Ingest.ChunkSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Ingest.ChunkSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.chunk_size: %w", err)
			}
			c.Ingest.ChunkSize = n
			return nil
		},
	},
	"ingest.chunk_overlap": {
		get: func(c *Config) string {
			if c.Ingest.ChunkOverlap == 0 {
				return ""
			}
			return strconv.Itoa(c.Ingest.ChunkOverlap)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.chunk_overlap: %w", err)
			}
			c.Ingest.ChunkOverlap = n
			return nil
		},
	},
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
