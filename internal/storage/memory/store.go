// Package memory keeps database objects in-memory for tests and callers that
// already hold the bytes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/referer-classifier/internal/storage"
)

// Store holds named objects in-memory.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put stores a copy of data under name.
func (s *Store) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
}

// Load returns a copy of the object stored under name.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: memory://%s", storage.ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}
