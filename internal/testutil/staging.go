package testutil

import (
	"path/filepath"
	"testing"

	"cloudstore/internal/drive"
	"cloudstore/internal/staging"
)

// DefaultStagingMaxSize is the default max archive size for test staging areas (10MB).
const DefaultStagingMaxSize = 10 * 1024 * 1024

// NewTestStagingArea creates a staging area under a test temp dir.
func NewTestStagingArea(t *testing.T) *staging.Area {
	t.Helper()
	return NewTestStagingAreaWithSize(t, DefaultStagingMaxSize)
}

// NewTestStagingAreaWithSize creates a staging area with a custom max archive size.
func NewTestStagingAreaWithSize(t *testing.T, maxSize int64) *staging.Area {
	t.Helper()
	area, err := staging.NewStagingArea(filepath.Join(t.TempDir(), "staging"), maxSize, nil, drive.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create staging area: %v", err)
	}
	return area
}
