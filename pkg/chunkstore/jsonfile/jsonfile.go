// Package jsonfile provides a chunkstore.Driver backed by a single JSON file
// holding the full ordered array of ingested chunks. The file is created
// empty at startup if absent and rewritten atomically on every append.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore"
)

// Driver implements chunkstore.Driver on a JSON array file.
type Driver struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	chunks []chunk.Chunk
}

// Config holds configuration for the JSON file driver.
type Config struct {
	// Path is the location of the chunk JSON file.
	Path string
}

// NewDriver loads the chunk collection from disk, defaulting to an empty
// collection when the file does not exist yet.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("chunk file path is required")
	}

	d := &Driver{
		path:   c.Path,
		logger: logger,
	}

	data, err := os.ReadFile(c.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no existing chunk file, starting fresh",
			zap.String("path", c.Path),
		)
	case err != nil:
		return nil, fmt.Errorf("%w: reading %s: %v", chunkstore.ErrIO, c.Path, err)
	default:
		if err := json.Unmarshal(data, &d.chunks); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", chunkstore.ErrIO, c.Path, err)
		}
		logger.Info("loaded chunk store",
			zap.String("path", c.Path),
			zap.Int("chunks", len(d.chunks)),
		)
	}

	return d, nil
}

// Append adds chunks and rewrites the file. The write goes to a temporary
// file in the same directory followed by a rename, so a concurrent reader
// never observes a half-written array; the in-memory state is only updated
// after the rename succeeds.
func (d *Driver) Append(_ context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	next := make([]chunk.Chunk, 0, len(d.chunks)+len(chunks))
	next = append(next, d.chunks...)
	next = append(next, chunks...)

	if err := d.write(next); err != nil {
		return err
	}
	d.chunks = next

	d.logger.Debug("appended chunks",
		zap.Int("count", len(chunks)),
		zap.Int("total", len(next)),
	)

	return nil
}

func (d *Driver) write(chunks []chunk.Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding chunks: %v", chunkstore.ErrIO, err)
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, ".chunks-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", chunkstore.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing temp file: %v", chunkstore.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing temp file: %v", chunkstore.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %v", chunkstore.ErrIO, err)
	}

	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", chunkstore.ErrIO, d.path, err)
	}

	return nil
}

// All returns a copy of the stored chunks in insertion order.
func (d *Driver) All(_ context.Context) ([]chunk.Chunk, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]chunk.Chunk, len(d.chunks))
	copy(out, d.chunks)
	return out, nil
}

// Count returns the number of stored chunks.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.chunks), nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

var _ chunkstore.Driver = (*Driver)(nil)
