package drive

import (
	"context"
	"io"
)

// StagingArea unpacks uploaded archives into isolated temporary
// directories before their entries are moved into the blob store.
type StagingArea interface {
	// Extract unpacks the archive. Malformed or oversized archives fail
	// with ErrInvalidArchive. Unsafe and ignored entries are skipped.
	Extract(ctx context.Context, archive io.ReaderAt, size int64) (*StagedArchive, error)

	// Discard removes whatever remains of a staged archive.
	Discard(a *StagedArchive) error
}

// StagedArchive is an extracted archive awaiting import.
type StagedArchive struct {
	Dir     string
	Entries []StagedEntry
	Skipped []string
}

// StagedEntry is one regular file of a staged archive. Name is the
// slash-separated path inside the archive.
type StagedEntry struct {
	Name      string
	LocalPath string
	Size      int64
}
