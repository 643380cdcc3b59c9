package drive

import (
	"context"
	"io"
)

// BlobStore holds file bytes keyed by full namespace path. Directories are
// implicit: they come into existence when a blob is written below them.
type BlobStore interface {
	// Put writes the content of r at path, creating parents as needed and
	// replacing any existing blob. It returns the number of bytes written.
	Put(ctx context.Context, path string, r io.Reader) (int64, error)

	// Open returns a reader for the blob at path or ErrBlobNotFound.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	Exists(ctx context.Context, path string) (bool, error)

	// Size returns the blob length in bytes or ErrBlobNotFound.
	Size(ctx context.Context, path string) (int64, error)

	// Rename moves a blob. It fails with ErrBlobNotFound when oldPath is
	// absent and ErrBlobExists when newPath is present.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Delete removes the blob at path. Absent blobs are a no-op.
	Delete(ctx context.Context, path string) error

	// MoveIn adopts a local file as the blob at path. The local file is
	// consumed.
	MoveIn(ctx context.Context, path, localPath string) error

	// Walk calls fn for every stored blob.
	Walk(ctx context.Context, fn func(path string, size int64) error) error

	// ValidateSetup verifies that the store is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
