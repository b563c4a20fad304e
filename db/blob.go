package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoBlob is returned by a BlobStore when nothing has been persisted yet.
var ErrNoBlob = errors.New("no persisted document")

// BlobStore persists the serialized document verbatim.
type BlobStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// FileBlobStore keeps the document in a single JSON file.
type FileBlobStore struct {
	Path string
}

var _ BlobStore = (*FileBlobStore)(nil)

func NewFileBlobStore(path string) *FileBlobStore {
	return &FileBlobStore{Path: path}
}

func (s *FileBlobStore) Load(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoBlob
		}
		return nil, fmt.Errorf("failed to read document %s: %w", s.Path, err)
	}
	return b, nil
}

// Save writes to a temp file in the same directory and renames it over the target.
func (s *FileBlobStore) Save(_ context.Context, blob []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to replace document %s: %w", s.Path, err)
	}
	return nil
}

// MemoryBlobStore keeps the document in process memory.
type MemoryBlobStore struct {
	mu   sync.Mutex
	blob []byte
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func (s *MemoryBlobStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		return nil, ErrNoBlob
	}
	return append([]byte(nil), s.blob...), nil
}

func (s *MemoryBlobStore) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = append([]byte(nil), blob...)
	return nil
}
