package drive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloudstore/internal/database/sqlc"
)

// FileDetail is a file record together with its stored size.
type FileDetail struct {
	File *sqlc.File
	Size int64
}

// Stats summarizes an owner's files. TotalFiles counts every record;
// TotalSize only sums blobs that are present.
type Stats struct {
	TotalFiles int
	TotalSize  int64
}

// Download opens one of the owner's files for reading. The caller must
// close the reader.
func (s *Service) Download(ctx context.Context, ownerID int64, relative string) (*sqlc.File, io.ReadCloser, error) {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.ownedFile(ctx, p, ErrForbidden)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, p.String())
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.inconsistent(InconsistencyMissingBlob, "path", p.String())
			return nil, nil, fmt.Errorf("%w: content of %s", ErrNotFound, p)
		}
		return nil, nil, fmt.Errorf("opening blob: %w", err)
	}
	return file, rc, nil
}

// FileInfo returns one of the owner's files with its stored size.
func (s *Service) FileInfo(ctx context.Context, ownerID int64, relative string) (*FileDetail, error) {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return nil, err
	}
	file, err := s.ownedFile(ctx, p, ErrForbidden)
	if err != nil {
		return nil, err
	}

	size, err := s.blobs.Size(ctx, p.String())
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.inconsistent(InconsistencyMissingBlob, "path", p.String())
			return nil, fmt.Errorf("%w: content of %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("reading blob size: %w", err)
	}
	return &FileDetail{File: file, Size: size}, nil
}

// Stats counts the owner's files and sums their stored sizes.
func (s *Service) Stats(ctx context.Context, ownerID int64) (*Stats, error) {
	files, err := s.ListFiles(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalFiles: len(files)}
	for _, f := range files {
		size, err := s.blobs.Size(ctx, f.Path)
		if err != nil {
			if errors.Is(err, ErrBlobNotFound) {
				s.logger.Warn("file record without blob", "path", f.Path)
				continue
			}
			return nil, fmt.Errorf("reading size of %s: %w", f.Path, err)
		}
		stats.TotalSize += size
	}
	return stats, nil
}
