package attach

import (
	"crypto/sha256"
	"encoding/hex"
)

type memEntry struct {
	data []byte
	mime string
}

// MemoryStore is an in-memory Store used by tests and short-lived sessions.
type MemoryStore struct {
	entries map[string]memEntry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry)}
}

// Create stores a blob, returning its content reference.
func (s *MemoryStore) Create(data []byte, mimeType, encoding string) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])
	if _, ok := s.entries[ref]; !ok {
		s.entries[ref] = memEntry{data: append([]byte(nil), data...), mime: mimeType}
	}
	return ref, nil
}

// Read returns the blob and its MIME type.
func (s *MemoryStore) Read(ref string) ([]byte, string, error) {
	e, ok := s.entries[ref]
	if !ok {
		return nil, "", ErrNotFound
	}
	return e.data, e.mime, nil
}

// Size returns the stored size.
func (s *MemoryStore) Size(ref string) (int64, error) {
	e, ok := s.entries[ref]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(e.data)), nil
}
