package persist

import "sync"

// BlobStore is an opaque key-value store. Get returns whatever the last
// Set stored for key.
type BlobStore interface {
	GetBlob(key string) (data []byte, ok bool, err error)
	SetBlob(key string, data []byte) error
}

// MemoryStore is an in-process BlobStore.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) GetBlob(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (m *MemoryStore) SetBlob(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(data))
	copy(b, data)
	m.blobs[key] = b
	return nil
}
