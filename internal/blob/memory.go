package blob

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps blobs in memory. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under name.
func (m *MemoryStore) Put(name string, data []byte) {
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	m.blobs[name] = copied
	m.mu.Unlock()
}

// Open returns a blob over the stored bytes.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory %s: %w", name, ErrNotFound)
	}
	return Bytes(data), nil
}

// Bytes wraps data as a Blob. The slice must not be modified afterwards.
func Bytes(data []byte) Blob {
	return &bytesBlob{Reader: bytes.NewReader(data)}
}

type bytesBlob struct {
	*bytes.Reader
}

func (b *bytesBlob) Close() error { return nil }
