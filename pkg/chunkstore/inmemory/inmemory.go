// Package inmemory provides a chunkstore.Driver for tests and local
// development. Nothing survives process exit.
package inmemory

import (
	"context"
	"sync"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore"
)

// Driver implements chunkstore.Driver on an in-process slice.
type Driver struct {
	mu     sync.RWMutex
	chunks []chunk.Chunk
}

// NewDriver creates an empty in-memory chunk store.
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Append(_ context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.chunks = append(d.chunks, chunks...)
	return nil
}

func (d *Driver) All(_ context.Context) ([]chunk.Chunk, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]chunk.Chunk, len(d.chunks))
	copy(out, d.chunks)
	return out, nil
}

func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.chunks), nil
}

func (d *Driver) Close() error {
	return nil
}

var _ chunkstore.Driver = (*Driver)(nil)
