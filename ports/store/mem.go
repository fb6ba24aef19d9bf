package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory ActivityStore for tests and dev mode. It mirrors
// the modified-count semantics of a real document store: appending to a
// document that does not exist modifies nothing.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]any // collection -> id -> field values
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]map[string][]any{}}
}

// EnsureDocument creates an empty document so appends against it succeed.
func (m *MemStore) EnsureDocument(collection, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = map[string][]any{}
	}
	if _, ok := m.data[collection][id]; !ok {
		m.data[collection][id] = []any{}
	}
}

func (m *MemStore) AppendToArray(_ context.Context, collection, id, _ string, value any) (AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.data[collection]
	if !ok {
		return AppendResult{Modified: 0}, nil
	}
	values, ok := docs[id]
	if !ok {
		return AppendResult{Modified: 0}, nil
	}
	docs[id] = append(values, value)
	return AppendResult{Modified: 1}, nil
}

// Values returns the appended values for a document. Used by tests.
func (m *MemStore) Values(collection, id string) []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, ok := m.data[collection]
	if !ok {
		return nil
	}
	return docs[id]
}

var _ ActivityStore = (*MemStore)(nil)
