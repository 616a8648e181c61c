package testutils

import (
	"context"
	"sync"

	"github.com/quarrylabs/quarry/pkg/chunk"
)

// MockChunkStore is a test chunk store that records appended chunks. Safe
// for concurrent use so tests can poll it while worker goroutines append.
type MockChunkStore struct {
	mu sync.Mutex

	// Chunks accumulates all chunks passed to Append. Use All or Count
	// when workers may still be running.
	Chunks []chunk.Chunk

	// FailAppend causes Append to return an error.
	FailAppend error

	// FailCount causes Count to return an error.
	FailCount error
}

func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		Chunks: make([]chunk.Chunk, 0),
	}
}

func (m *MockChunkStore) Append(_ context.Context, chunks []chunk.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend != nil {
		return m.FailAppend
	}
	m.Chunks = append(m.Chunks, chunks...)
	return nil
}

func (m *MockChunkStore) All(_ context.Context) ([]chunk.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chunk.Chunk, len(m.Chunks))
	copy(out, m.Chunks)
	return out, nil
}

func (m *MockChunkStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCount != nil {
		return 0, m.FailCount
	}
	return len(m.Chunks), nil
}

func (m *MockChunkStore) Close() error {
	return nil
}
