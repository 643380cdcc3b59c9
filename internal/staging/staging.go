package staging

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cloudstore/internal/drive"
	"cloudstore/internal/fs"
)

// Area implements drive.StagingArea on the local filesystem.
// Every extraction gets its own directory under dir, so concurrent
// imports never see each other's entries.
type Area struct {
	dir     string
	maxSize int64
	ignore  *fs.IgnoreMatcher
	logger  drive.Logger
}

var _ drive.StagingArea = (*Area)(nil)

// NewStagingArea creates a staging area rooted at dir. maxSize caps the
// total uncompressed size of a single archive. ignore holds extra
// patterns on top of fs.DefaultIgnorePatterns.
func NewStagingArea(dir string, maxSize int64, ignore []string, logger drive.Logger) (*Area, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}
	if logger == nil {
		logger = drive.NewNopLogger()
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving staging dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0700); err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	return &Area{
		dir:     absDir,
		maxSize: maxSize,
		ignore:  fs.NewDefaultIgnoreMatcher(ignore),
		logger:  logger,
	}, nil
}

// Dir returns the directory extractions are created under.
func (s *Area) Dir() string {
	return s.dir
}

// Extract unpacks every acceptable regular file of the archive.
func (s *Area) Extract(ctx context.Context, archive io.ReaderAt, size int64) (*drive.StagedArchive, error) {
	zr, err := zip.NewReader(archive, size)
	if errors.Is(err, zip.ErrInsecurePath) {
		// Unsafe names are skipped entry by entry below.
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drive.ErrInvalidArchive, err)
	}

	var declared uint64
	for _, f := range zr.File {
		declared += f.UncompressedSize64
		if declared > uint64(s.maxSize) {
			return nil, fmt.Errorf("%w: uncompressed size exceeds %d bytes", drive.ErrInvalidArchive, s.maxSize)
		}
	}

	tmp, err := os.MkdirTemp(s.dir, "import-*")
	if err != nil {
		return nil, fmt.Errorf("creating extraction dir: %w", err)
	}
	staged := &drive.StagedArchive{Dir: tmp}

	remaining := s.maxSize
	seen := make(map[string]bool)
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			s.Discard(staged)
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}

		name, ok := fs.CleanEntryName(f.Name)
		if !ok || !f.Mode().IsRegular() || seen[name] {
			s.logger.Warn("skipping archive entry", "entry", f.Name)
			staged.Skipped = append(staged.Skipped, f.Name)
			continue
		}
		if s.ignore.Match(name) {
			s.logger.Debug("ignoring archive entry", "entry", name)
			staged.Skipped = append(staged.Skipped, f.Name)
			continue
		}

		local := filepath.Join(tmp, filepath.FromSlash(name))
		n, err := writeEntry(f, local, remaining)
		switch {
		case errors.Is(err, errTooLarge), errors.Is(err, zip.ErrChecksum), errors.Is(err, zip.ErrFormat), errors.Is(err, zip.ErrAlgorithm):
			s.Discard(staged)
			return nil, fmt.Errorf("%w: entry %s: %v", drive.ErrInvalidArchive, f.Name, err)
		case err != nil:
			// Local collisions, e.g. "a" as both a file and a directory.
			s.logger.Warn("skipping archive entry", "entry", name, "error", err)
			staged.Skipped = append(staged.Skipped, f.Name)
			continue
		}
		remaining -= n
		seen[name] = true
		staged.Entries = append(staged.Entries, drive.StagedEntry{Name: name, LocalPath: local, Size: n})
	}

	sort.Slice(staged.Entries, func(i, j int) bool {
		return staged.Entries[i].Name < staged.Entries[j].Name
	})
	return staged, nil
}

// Discard removes the extraction directory and everything left in it.
func (s *Area) Discard(a *drive.StagedArchive) error {
	if a == nil || a.Dir == "" {
		return nil
	}
	rel, err := filepath.Rel(s.dir, a.Dir)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return fmt.Errorf("refusing to discard %s: not inside %s", a.Dir, s.dir)
	}
	if err := os.RemoveAll(a.Dir); err != nil {
		return fmt.Errorf("removing %s: %w", a.Dir, err)
	}
	return nil
}

var errTooLarge = errors.New("entry exceeds remaining size budget")

// writeEntry copies one archive entry to local, reading at most limit
// bytes. Declared sizes are not trusted.
func writeEntry(f *zip.File, local string, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(local), 0700); err != nil {
		return 0, fmt.Errorf("creating parent: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("opening entry: %w", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(rc, limit+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = errTooLarge
	}
	if err != nil {
		os.Remove(local)
		return 0, err
	}
	return n, nil
}
