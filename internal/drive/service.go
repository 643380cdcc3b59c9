package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"cloudstore/internal/database/sqlc"
)

// Options carries the optional collaborators of a Service.
type Options struct {
	// PublicBaseURL prefixes public link URLs, e.g. "https://files.example.com".
	PublicBaseURL string
	Cache         LinkCache
	Metrics       Metrics
}

// Service is the namespace manager. It keeps the metadata store and the blob
// store in step for every operation a transport adapter exposes.
//
// Neither store participates in a shared transaction. Each mutating
// operation performs its checks first, then the blob step, then the
// metadata step, and compensates the blob step when the metadata step
// fails. Divergences that cannot be undone are logged at error level and
// counted.
type Service struct {
	database      Database
	blobs         BlobStore
	staging       StagingArea
	logger        Logger
	cache         LinkCache
	metrics       Metrics
	publicBaseURL string

	// evictions counts token evictions. A lookup that overlaps one drops
	// the entry it cached, since it may have read the token before the
	// change.
	evictions atomic.Uint64
}

// NewService creates a Service with the provided dependencies.
func NewService(database Database, blobs BlobStore, staging StagingArea, logger Logger, opts Options) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		database:      database,
		blobs:         blobs,
		staging:       staging,
		logger:        logger,
		cache:         opts.Cache,
		metrics:       metrics,
		publicBaseURL: opts.PublicBaseURL,
	}
}

// Upload stores the content of r at the owner's relative path and registers
// it. Uploading over an existing file fails with ErrAlreadyExists and leaves
// the existing file untouched.
func (s *Service) Upload(ctx context.Context, ownerID int64, relative string, r io.Reader) (*sqlc.File, error) {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return nil, err
	}
	if err := s.checkVacant(ctx, p, true); err != nil {
		return nil, err
	}

	n, err := s.blobs.Put(ctx, p.String(), r)
	if err != nil {
		return nil, fmt.Errorf("writing blob: %w", err)
	}

	file, err := s.register(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file uploaded", "path", p.String(), "size", n)
	return file, nil
}

// MakeDirectory records an empty directory. Nothing is written to the blob
// store.
func (s *Service) MakeDirectory(ctx context.Context, ownerID int64, relative string) (*sqlc.Directory, error) {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return nil, err
	}
	if err := s.checkVacant(ctx, p, false); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s is a file", ErrConflict, p)
		}
		return nil, err
	}

	dir, err := s.database.CreateDirectory(ctx, p.String(), ownerID)
	if err != nil {
		if errors.Is(err, ErrDuplicatePath) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, p)
		}
		return nil, fmt.Errorf("creating directory record: %w", err)
	}

	s.logger.Info("directory created", "path", p.String())
	return dir, nil
}

// Rename moves a file to a new relative path within the owner's namespace.
// Renaming a file onto its current path fails with ErrConflict.
func (s *Service) Rename(ctx context.Context, ownerID int64, oldRelative, newRelative string) (*sqlc.File, error) {
	oldPath, err := filePath(ownerID, oldRelative)
	if err != nil {
		return nil, err
	}
	newPath, err := filePath(ownerID, newRelative)
	if err != nil {
		return nil, err
	}

	file, err := s.ownedFile(ctx, oldPath, ErrNotFound)
	if err != nil {
		return nil, err
	}
	if oldPath == newPath {
		return nil, fmt.Errorf("%w: %s is already named %s", ErrConflict, oldPath, newRelative)
	}
	if newPath.Contains(oldPath.String()) || oldPath.Contains(newPath.String()) {
		return nil, fmt.Errorf("%w: cannot move %s to %s", ErrConflict, oldPath, newPath)
	}
	if err := s.checkVacant(ctx, newPath, true); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, newPath)
		}
		return nil, err
	}

	if err := s.blobs.Rename(ctx, oldPath.String(), newPath.String()); err != nil {
		if errors.Is(err, ErrBlobNotFound) || errors.Is(err, ErrBlobExists) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, fmt.Errorf("renaming blob: %w", err)
	}

	renamed, err := s.database.RenameFile(ctx, oldPath.String(), newPath.String())
	if err != nil || renamed == nil {
		s.undoRename(ctx, oldPath, newPath)
		switch {
		case errors.Is(err, ErrDuplicatePath):
			return nil, fmt.Errorf("%w: %s", ErrConflict, newPath)
		case err != nil:
			return nil, fmt.Errorf("renaming file record: %w", err)
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, oldPath)
		}
	}

	s.forgetToken(file)
	s.logger.Info("file renamed", "from", oldPath.String(), "to", newPath.String())
	return renamed, nil
}

func (s *Service) undoRename(ctx context.Context, oldPath, newPath Path) {
	ctx = context.WithoutCancel(ctx)
	if err := s.blobs.Rename(ctx, newPath.String(), oldPath.String()); err != nil {
		s.inconsistent(InconsistencyRenameUndo, "from", oldPath.String(), "to", newPath.String(), "error", err)
	}
}

// Delete removes a file, or an empty directory record. Deleting a path that
// names nothing succeeds. Directories with entries below them fail with
// ErrConflict.
func (s *Service) Delete(ctx context.Context, ownerID int64, relative string) error {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return err
	}

	file, err := s.database.FindFileByPath(ctx, p.String())
	if err != nil {
		return fmt.Errorf("finding file: %w", err)
	}
	if file != nil {
		if file.OwnerID != ownerID {
			return fmt.Errorf("%w: %s", ErrForbidden, p)
		}
		if err := s.blobs.Delete(ctx, p.String()); err != nil {
			return fmt.Errorf("deleting blob: %w", err)
		}
		if err := s.database.DeleteFile(ctx, p.String()); err != nil {
			s.inconsistent(InconsistencyStaleRecord, "path", p.String(), "error", err)
			return fmt.Errorf("deleting file record: %w", err)
		}
		s.forgetToken(file)
		s.logger.Info("file deleted", "path", p.String())
		return nil
	}

	dir, err := s.database.FindDirectoryByPath(ctx, p.String())
	if err != nil {
		return fmt.Errorf("finding directory: %w", err)
	}
	if dir == nil {
		s.logger.Debug("delete of absent path", "path", p.String())
		return nil
	}
	if dir.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", ErrForbidden, p)
	}
	nonEmpty, err := s.hasDescendants(ctx, p)
	if err != nil {
		return err
	}
	if nonEmpty {
		return fmt.Errorf("%w: directory %s is not empty", ErrConflict, p)
	}
	if err := s.database.DeleteDirectory(ctx, p.String()); err != nil {
		return fmt.Errorf("deleting directory record: %w", err)
	}
	s.logger.Info("directory deleted", "path", p.String())
	return nil
}

// register creates the record for a blob already written at p. When the
// record cannot be created the blob is removed again, unless another
// writer registered the same path in the meantime.
func (s *Service) register(ctx context.Context, p Path) (*sqlc.File, error) {
	file, err := s.database.CreateFile(ctx, p.String(), p.Owner())
	if err == nil {
		return file, nil
	}
	if errors.Is(err, ErrDuplicatePath) {
		s.inconsistent(InconsistencyDuplicatePut, "path", p.String())
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}
	if derr := s.blobs.Delete(context.WithoutCancel(ctx), p.String()); derr != nil {
		s.inconsistent(InconsistencyOrphanBlob, "path", p.String(), "error", derr)
	}
	return nil, fmt.Errorf("creating file record: %w", err)
}

// checkVacant fails when p is already taken by a file or directory record,
// or when an ancestor of p is a file. When forFile is set, a path that
// already has entries below it is also taken.
func (s *Service) checkVacant(ctx context.Context, p Path, forFile bool) error {
	existing, err := s.database.FindFileByPath(ctx, p.String())
	if err != nil {
		return fmt.Errorf("checking for existing file: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}

	dir, err := s.database.FindDirectoryByPath(ctx, p.String())
	if err != nil {
		return fmt.Errorf("checking for existing directory: %w", err)
	}
	if dir != nil {
		return fmt.Errorf("%w: %s is a directory", ErrConflict, p)
	}

	for _, a := range p.Ancestors() {
		parent, err := s.database.FindFileByPath(ctx, a.String())
		if err != nil {
			return fmt.Errorf("checking parent %s: %w", a, err)
		}
		if parent != nil {
			return fmt.Errorf("%w: %s is a file", ErrConflict, a)
		}
	}

	if forFile {
		nonEmpty, err := s.hasDescendants(ctx, p)
		if err != nil {
			return err
		}
		if nonEmpty {
			return fmt.Errorf("%w: %s is a directory", ErrConflict, p)
		}
	}
	return nil
}

// hasDescendants reports whether any record lies below p.
func (s *Service) hasDescendants(ctx context.Context, p Path) (bool, error) {
	files, err := s.database.ListFiles(ctx, p.Owner())
	if err != nil {
		return false, fmt.Errorf("listing files: %w", err)
	}
	for _, f := range files {
		if p.Contains(f.Path) {
			return true, nil
		}
	}
	dirs, err := s.database.ListDirectories(ctx, p.Owner())
	if err != nil {
		return false, fmt.Errorf("listing directories: %w", err)
	}
	for _, d := range dirs {
		if p.Contains(d.Path) {
			return true, nil
		}
	}
	return false, nil
}

// ownedFile loads the record at p. A missing record is ErrNotFound; a record
// of another owner fails with mismatch.
func (s *Service) ownedFile(ctx context.Context, p Path, mismatch error) (*sqlc.File, error) {
	file, err := s.database.FindFileByPath(ctx, p.String())
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if file.OwnerID != p.Owner() {
		return nil, fmt.Errorf("%w: %s", mismatch, p)
	}
	return file, nil
}

func (s *Service) inconsistent(kind string, args ...any) {
	s.metrics.Inconsistency(kind)
	s.logger.Error("metadata and blob store diverged", append([]any{"kind", kind}, args...)...)
}

func (s *Service) forgetToken(file *sqlc.File) {
	if s.cache != nil && file != nil && file.PublicToken.Valid {
		s.evictions.Add(1)
		s.cache.Remove(file.PublicToken.String)
	}
}

// filePath builds a path that may name a file or directory, which excludes
// the owner's root.
func filePath(ownerID int64, relative string) (Path, error) {
	p, err := NewPath(ownerID, relative)
	if err != nil {
		return Path{}, err
	}
	if p.IsRoot() {
		return Path{}, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	return p, nil
}
