package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"DerivBot/internal/domain/repository"
)

// MemoryStore holds encoded documents in process memory. Documents are
// kept as JSON so callers never share mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, name string, dest any) error {
	s.mu.RLock()
	data, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("load %s: %w", name, repository.ErrDocumentNotFound)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("load %s: %w: %v", name, repository.ErrCorruptDocument, err)
	}
	return nil
}

func (s *MemoryStore) Save(_ context.Context, name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	s.mu.Lock()
	s.docs[name] = data
	s.mu.Unlock()
	return nil
}

// Put stores raw bytes under name. Tests use it to plant corrupt documents.
func (s *MemoryStore) Put(name string, raw []byte) {
	s.mu.Lock()
	s.docs[name] = append([]byte(nil), raw...)
	s.mu.Unlock()
}

// Quarantine copies the raw bytes to "<name>.<suffix>".
func (s *MemoryStore) Quarantine(_ context.Context, name, suffix string) (string, error) {
	backup := name + "." + suffix
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[name]
	if !ok {
		return "", fmt.Errorf("quarantine %s: %w", name, repository.ErrDocumentNotFound)
	}
	s.docs[backup] = data
	return backup, nil
}

// Raw returns the stored bytes of name.
func (s *MemoryStore) Raw(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[name]
	return append([]byte(nil), data...), ok
}
