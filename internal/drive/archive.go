package drive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloudstore/internal/database/sqlc"
)

// Import entry results.
const (
	ImportImported = "imported"
	ImportSkipped  = "skipped"
	ImportIgnored  = "ignored"
)

// ImportArchive unpacks a ZIP archive and registers every regular file in it
// below the owner's root, keeping the paths it had inside the archive.
//
// A malformed archive yields an empty result and no error. Once extraction
// succeeds the call does not fail: entries that cannot be registered are
// logged and skipped, and the registered records are returned.
func (s *Service) ImportArchive(ctx context.Context, ownerID int64, archive io.ReaderAt, size int64) ([]*sqlc.File, error) {
	if _, err := NewPath(ownerID, ""); err != nil {
		return nil, err
	}

	staged, err := s.staging.Extract(ctx, archive, size)
	if err != nil {
		if errors.Is(err, ErrInvalidArchive) {
			s.logger.Warn("archive rejected", "owner", ownerID, "error", err)
			return []*sqlc.File{}, nil
		}
		return nil, fmt.Errorf("extracting archive: %w", err)
	}
	defer func() {
		if err := s.staging.Discard(staged); err != nil {
			s.logger.Warn("removing staged archive", "dir", staged.Dir, "error", err)
		}
	}()

	for _, name := range staged.Skipped {
		s.metrics.ImportEntry(ImportIgnored)
		s.logger.Debug("archive entry ignored", "entry", name)
	}

	files := make([]*sqlc.File, 0, len(staged.Entries))
	for _, entry := range staged.Entries {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("archive import interrupted", "owner", ownerID, "imported", len(files), "error", err)
			break
		}
		file, err := s.importEntry(ctx, ownerID, entry)
		if err != nil {
			s.metrics.ImportEntry(ImportSkipped)
			s.logger.Warn("archive entry skipped", "entry", entry.Name, "error", err)
			continue
		}
		s.metrics.ImportEntry(ImportImported)
		files = append(files, file)
	}

	s.logger.Info("archive imported", "owner", ownerID, "imported", len(files), "entries", len(staged.Entries))
	return files, nil
}

func (s *Service) importEntry(ctx context.Context, ownerID int64, entry StagedEntry) (*sqlc.File, error) {
	p, err := filePath(ownerID, entry.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkVacant(ctx, p, true); err != nil {
		return nil, err
	}
	if err := s.blobs.MoveIn(ctx, p.String(), entry.LocalPath); err != nil {
		return nil, fmt.Errorf("moving entry into blob store: %w", err)
	}
	return s.register(ctx, p)
}
