package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists all documents in a single JSON file. Every write
// re-reads the current file, merges the changed document in, and writes the
// whole file back, so a write to one document cannot drop another even if a
// different process touched the file in between. Writes go through a temp
// file and rename to stay durable against a crash mid-write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed document store at path. The file is
// created lazily on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Get retrieves the named document.
func (s *FileStore) Get(ctx context.Context, name string, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll()
	if err != nil {
		return false, err
	}
	raw, ok := docs[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode document %q: %w", name, err)
	}
	return true, nil
}

// Put replaces the named document, preserving all sibling documents.
func (s *FileStore) Put(ctx context.Context, name string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll()
	if err != nil {
		return err
	}
	docs[name] = raw
	return s.writeAll(docs)
}

// Delete removes the named document. Deleting a missing document is a no-op.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := docs[name]; !ok {
		return nil
	}
	delete(docs, name)
	return s.writeAll(docs)
}

// Close implements Store. The file store holds no open resources.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]json.RawMessage), nil
	}

	docs := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}
	return docs, nil
}

func (s *FileStore) writeAll(docs map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
