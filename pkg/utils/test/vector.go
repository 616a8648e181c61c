package testutils

import (
	"context"

	"github.com/quarrylabs/quarry/pkg/vector"
)

// MockVectorDriver is a test vector driver that records upserts and returns
// configurable query results.
type MockVectorDriver struct {
	// Upserted accumulates all documents passed to Upsert.
	Upserted []vector.Document

	// Results is returned by Query, truncated to topK.
	Results []vector.QueryResult

	// FailUpsert causes Upsert to return an error.
	FailUpsert error

	// FailQuery causes Query to return an error.
	FailQuery error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Upserted: make([]vector.Document, 0),
		Results:  make([]vector.QueryResult, 0),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, docs []vector.Document) error {
	if m.FailUpsert != nil {
		return m.FailUpsert
	}
	m.Upserted = append(m.Upserted, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery != nil {
		return nil, m.FailQuery
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	return m.Upserted, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	return len(m.Upserted), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
