// Package blobstore provides drive.BlobStore backends: a directory on the
// local filesystem, process memory, and S3-compatible object storage.
package blobstore

import (
	"fmt"
	"strings"

	"cloudstore/internal/drive"
)

// checkKey rejects blob paths that could address anything outside the
// store's root.
func checkKey(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty blob path", drive.ErrInvalidPath)
	}
	if strings.HasPrefix(path, "/") || strings.ContainsAny(path, "\\\x00") {
		return fmt.Errorf("%w: blob path %q", drive.ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: blob path %q", drive.ErrInvalidPath, path)
		}
	}
	return nil
}
