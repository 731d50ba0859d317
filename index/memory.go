package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/brandrag"
)

// memGeneration is one complete, immutable build of a collection.
type memGeneration struct {
	meta brandrag.CollectionMeta
	docs []brandrag.Document
}

// Memory is an in-process vector index. Replace swaps a whole generation
// pointer under the lock, so concurrent readers always observe either the
// previous complete build or the new one, never a partial state.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memGeneration
}

var _ brandrag.VectorIndex = (*Memory)(nil)

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memGeneration),
	}
}

// Replace installs a new generation for the collection.
func (m *Memory) Replace(_ context.Context, collection string, meta brandrag.CollectionMeta, docs []brandrag.Document) error {
	gen := &memGeneration{
		meta: meta,
		docs: make([]brandrag.Document, len(docs)),
	}
	copy(gen.docs, docs)

	m.mu.Lock()
	m.collections[collection] = gen
	m.mu.Unlock()
	return nil
}

// Query returns up to k candidates ranked by cosine similarity.
func (m *Memory) Query(_ context.Context, collection string, embedding []float32, k int) ([]brandrag.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	m.mu.RLock()
	gen := m.collections[collection]
	m.mu.RUnlock()

	if gen == nil {
		return nil, fmt.Errorf("%w: collection %q", brandrag.ErrIndexNotBuilt, collection)
	}
	return rank(gen.docs, embedding, k), nil
}

// Meta returns the collection metadata.
func (m *Memory) Meta(_ context.Context, collection string) (*brandrag.CollectionMeta, error) {
	m.mu.RLock()
	gen := m.collections[collection]
	m.mu.RUnlock()

	if gen == nil {
		return nil, fmt.Errorf("%w: collection %q", brandrag.ErrIndexNotBuilt, collection)
	}
	meta := gen.meta
	return &meta, nil
}

// Drop removes a collection.
func (m *Memory) Drop(_ context.Context, collection string) error {
	m.mu.Lock()
	delete(m.collections, collection)
	m.mu.Unlock()
	return nil
}

// Close releases all collections.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.collections = make(map[string]*memGeneration)
	m.mu.Unlock()
	return nil
}
