package drive

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloudstore/internal/database/sqlc"
)

// Listing holds the immediate children of a directory, by name.
type Listing struct {
	Directories []string
	Files       []string
}

// ListChildren returns the immediate children of the owner's relative
// prefix. A directory is listed when a directory record or any deeper file
// lies below it. This is a full scan of the owner's records.
func (s *Service) ListChildren(ctx context.Context, ownerID int64, prefix string) (*Listing, error) {
	base, err := NewPath(ownerID, prefix)
	if err != nil {
		return nil, err
	}
	full := base.String() + "/"

	dirs, err := s.database.ListDirectories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}
	files, err := s.database.ListFiles(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	dirNames := make(map[string]struct{})
	fileNames := make(map[string]struct{})
	for _, d := range dirs {
		if name, _, ok := childOf(full, d.Path); ok {
			dirNames[name] = struct{}{}
		}
	}
	for _, f := range files {
		name, deeper, ok := childOf(full, f.Path)
		if !ok {
			continue
		}
		if deeper {
			dirNames[name] = struct{}{}
		} else {
			fileNames[name] = struct{}{}
		}
	}

	return &Listing{
		Directories: sortedKeys(dirNames),
		Files:       sortedKeys(fileNames),
	}, nil
}

// ListFiles returns all of the owner's file records ordered by path.
func (s *Service) ListFiles(ctx context.Context, ownerID int64) ([]*sqlc.File, error) {
	if _, err := NewPath(ownerID, ""); err != nil {
		return nil, err
	}
	files, err := s.database.ListFiles(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// childOf returns the first segment of path below prefix and whether more
// segments follow it.
func childOf(prefix, path string) (name string, deeper bool, ok bool) {
	rest, found := strings.CutPrefix(path, prefix)
	if !found || rest == "" {
		return "", false, false
	}
	name, _, deeper = strings.Cut(rest, "/")
	return name, deeper, true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
