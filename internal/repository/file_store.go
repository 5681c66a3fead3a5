package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"DerivBot/internal/domain/repository"
)

// FileStore keeps each document in its own JSON file.
type FileStore struct {
	mu    sync.Mutex
	paths map[string]string
}

// NewFileStore maps logical document names to file paths. Unmapped names
// are stored as "<name>.json" in the working directory.
func NewFileStore(paths map[string]string) *FileStore {
	p := make(map[string]string, len(paths))
	for name, path := range paths {
		p[name] = path
	}
	return &FileStore{paths: p}
}

func (s *FileStore) path(name string) string {
	if p, ok := s.paths[name]; ok && p != "" {
		return p
	}
	return name + ".json"
}

func (s *FileStore) Load(_ context.Context, name string, dest any) error {
	path := s.path(name)

	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()

	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, repository.ErrDocumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("load %s: %w: %v", path, repository.ErrCorruptDocument, err)
	}
	return nil
}

// Save writes to a temp file in the target directory and renames it over the old one.
func (s *FileStore) Save(_ context.Context, name string, doc any) error {
	path := s.path(name)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Quarantine renames the file to "<path>.<suffix>".
func (s *FileStore) Quarantine(_ context.Context, name, suffix string) (string, error) {
	path := s.path(name)
	backup := path + "." + suffix

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", path, err)
	}
	return backup, nil
}
