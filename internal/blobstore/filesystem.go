package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloudstore/internal/drive"
)

const (
	// tmpDirName holds in-flight writes. Blob paths always start with an
	// owner segment, so it never collides with a blob.
	tmpDirName = ".tmp"

	// renameAttempts bounds renameInto retries against concurrent pruning.
	renameAttempts = 5
)

// FileSystemStore stores blobs as files below a root directory, at the
// same relative path as their namespace path:
//
//	<root>/
//	  .tmp/            (in-flight writes)
//	  user_1/
//	    docs/a.txt
type FileSystemStore struct {
	root   string
	tmpDir string
}

// NewFileSystemStore creates a filesystem blob store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root: %w", err)
	}
	tmpDir := filepath.Join(abs, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FileSystemStore{root: abs, tmpDir: tmpDir}, nil
}

func (s *FileSystemStore) resolve(path string) (string, error) {
	if err := checkKey(path); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: blob path %q escapes root", drive.ErrInvalidPath, path)
	}
	return full, nil
}

// Put writes r to a temp file and renames it into place.
func (s *FileSystemStore) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	dest, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("creating parent directories: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.tmpDir, "put-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := renameInto(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return written, nil
}

func (s *FileSystemStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.statFile(full, path); err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

func (s *FileSystemStore) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := s.statFile(full, path); err != nil {
		if errors.Is(err, drive.ErrBlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FileSystemStore) Size(_ context.Context, path string) (int64, error) {
	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	info, err := s.statFile(full, path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *FileSystemStore) Rename(_ context.Context, oldPath, newPath string) error {
	src, err := s.resolve(oldPath)
	if err != nil {
		return err
	}
	dest, err := s.resolve(newPath)
	if err != nil {
		return err
	}

	if _, err := s.statFile(src, oldPath); err != nil {
		return err
	}
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %s", drive.ErrBlobExists, newPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking rename target: %w", err)
	}

	if err := renameInto(src, dest); err != nil {
		return fmt.Errorf("renaming blob: %w", err)
	}
	s.pruneEmptyParents(src)
	return nil
}

// Delete removes a blob and any parent directories it leaves empty.
func (s *FileSystemStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if _, err := s.statFile(full, path); err != nil {
		if errors.Is(err, drive.ErrBlobNotFound) {
			return nil
		}
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	s.pruneEmptyParents(full)
	return nil
}

// MoveIn renames localPath into place, copying when the rename crosses
// filesystems.
func (s *FileSystemStore) MoveIn(ctx context.Context, path, localPath string) error {
	dest, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := renameInto(localPath, dest); err == nil {
		return nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening staged file: %w", err)
	}
	defer f.Close()
	if _, err := s.Put(ctx, path, f); err != nil {
		return err
	}
	f.Close()
	if err := os.Remove(localPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing staged file: %w", err)
	}
	return nil
}

// Walk visits every regular file below the root except in-flight writes.
func (s *FileSystemStore) Walk(ctx context.Context, fn func(path string, size int64) error) error {
	return filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p == s.tmpDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), info.Size())
	})
}

// ValidateSetup verifies that the root is a writable directory.
func (s *FileSystemStore) ValidateSetup(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("blob root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root is not a directory: %s", s.root)
	}

	probe, err := os.CreateTemp(s.tmpDir, "probe-*")
	if err != nil {
		return fmt.Errorf("blob root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// statFile stats full and maps anything that is not a regular file to
// drive.ErrBlobNotFound.
func (s *FileSystemStore) statFile(full, path string) (fs.FileInfo, error) {
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscallNotDir) {
			return nil, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
	}
	return info, nil
}

// renameInto moves src to dest, creating dest's parents. A concurrent
// Delete or Rename may prune those parents between MkdirAll and the
// rename, so the pair is retried while dest's directory keeps vanishing.
func renameInto(src, dest string) error {
	var err error
	for attempt := 0; attempt < renameAttempts; attempt++ {
		if err = os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("creating parent directories: %w", err)
		}
		if err = os.Rename(src, dest); err == nil || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if _, statErr := os.Lstat(src); statErr != nil {
			return err
		}
	}
	return err
}

// pruneEmptyParents removes directories left empty below the root. Writers
// recreate them through renameInto.
func (s *FileSystemStore) pruneEmptyParents(full string) {
	for dir := filepath.Dir(full); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

// Compile-time check that FileSystemStore implements drive.BlobStore interface
var _ drive.BlobStore = (*FileSystemStore)(nil)
