package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"cloudstore/internal/drive"
)

// MemoryStore is an in-memory implementation of the drive.BlobStore
// interface, useful for testing and ephemeral deployments.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, path string, r io.Reader) (int64, error) {
	if err := checkKey(path); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read content: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = data
	return int64(len(data)), nil
}

func (m *MemoryStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[path]
	return ok, nil
}

func (m *MemoryStore) Size(_ context.Context, path string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
	}
	return int64(len(data)), nil
}

func (m *MemoryStore) Rename(_ context.Context, oldPath, newPath string) error {
	if err := checkKey(newPath); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[oldPath]
	if !ok {
		return fmt.Errorf("%w: %s", drive.ErrBlobNotFound, oldPath)
	}
	if _, taken := m.blobs[newPath]; taken {
		return fmt.Errorf("%w: %s", drive.ErrBlobExists, newPath)
	}
	m.blobs[newPath] = data
	delete(m.blobs, oldPath)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, path)
	return nil
}

// MoveIn reads localPath into memory and removes it.
func (m *MemoryStore) MoveIn(ctx context.Context, path, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading staged file: %w", err)
	}
	if _, err := m.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Remove(localPath)
}

// Walk visits blobs in path order.
func (m *MemoryStore) Walk(ctx context.Context, fn func(path string, size int64) error) error {
	m.mu.RLock()
	paths := make([]string, 0, len(m.blobs))
	sizes := make(map[string]int64, len(m.blobs))
	for p, data := range m.blobs {
		paths = append(paths, p)
		sizes[p] = int64(len(data))
	}
	m.mu.RUnlock()

	sort.Strings(paths)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p, sizes[p]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSetup always succeeds for memory stores.
func (m *MemoryStore) ValidateSetup(context.Context) error {
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Compile-time check that MemoryStore implements drive.BlobStore interface
var _ drive.BlobStore = (*MemoryStore)(nil)
