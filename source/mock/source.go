// Package mock provides an in-memory DocumentSource for tests, with
// hooks for injecting failures on specific fetches.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/markit/source"
)

// MockSource serves pages out of a fixed, ordered document list.
//
// FailOn maps a fetch call number (0-based, counting FetchBatch calls)
// to the error that call should return; FetchFunc, when set, replaces
// the default behavior entirely.
type MockSource struct {
	Docs       []source.Document
	FailOn     map[int]error
	FetchFunc  func(ctx context.Context, collection, field string, offset, limit int, filter string) ([]source.Document, int, error)
	ExistsFunc func(ctx context.Context, collection string) (bool, error)

	mu    sync.Mutex
	calls int
}

var _ source.DocumentSource = (*MockSource)(nil)

// New creates a MockSource over the given documents.
func New(docs ...source.Document) *MockSource {
	return &MockSource{Docs: docs}
}

func (m *MockSource) FetchBatch(ctx context.Context, collection, field string, offset, limit int, filter string) ([]source.Document, int, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err, ok := m.FailOn[call]; ok {
		return nil, 0, err
	}
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, collection, field, offset, limit, filter)
	}

	if offset >= len(m.Docs) {
		return nil, 0, nil
	}
	end := min(offset+limit, len(m.Docs))
	page := make([]source.Document, end-offset)
	copy(page, m.Docs[offset:end])
	return page, len(page), nil
}

func (m *MockSource) Exists(ctx context.Context, collection string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, collection)
	}
	return true, nil
}

// Calls returns how many times FetchBatch has been invoked.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
