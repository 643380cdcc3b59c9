package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"cloudstore/internal/config"
	"cloudstore/internal/drive"
	"cloudstore/internal/fs"
)

// DefaultMaxSize is the default cap on an archive's uncompressed size (1GiB).
const DefaultMaxSize int64 = 1 << 30

// NewStagingAreaFromConfig creates the staging area described by cfg.
// An empty dir falls back to a cloudstore directory under the OS temp dir.
func NewStagingAreaFromConfig(cfg config.StagingConfig, logger drive.Logger) (drive.StagingArea, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "cloudstore-staging")
	}
	ignore := append([]string(nil), cfg.Ignore...)
	if cfg.IgnoreFile != "" {
		patterns, err := fs.ParseIgnoreFile(cfg.IgnoreFile)
		if err != nil {
			return nil, err
		}
		ignore = append(ignore, patterns...)
	}

	area, err := NewStagingArea(dir, maxSize, ignore, logger)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}
	if logger != nil {
		logger.Debug("staging area ready", "dir", area.Dir(), "ignore_patterns", len(ignore))
	}
	return area, nil
}
