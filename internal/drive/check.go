package drive

import (
	"context"
	"fmt"
)

// CheckReport lists divergences between the metadata store and the blob
// store.
type CheckReport struct {
	Files        int
	Blobs        int
	MissingBlobs []string // records without content
	OrphanBlobs  []string // content without a record
}

// Consistent reports whether no divergence was found.
func (r *CheckReport) Consistent() bool {
	return len(r.MissingBlobs) == 0 && len(r.OrphanBlobs) == 0
}

// Check compares every file record with every stored blob. Directory
// records have no blob counterpart and are not considered.
func (s *Service) Check(ctx context.Context) (*CheckReport, error) {
	files, err := s.database.ListAllFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = false
	}

	report := &CheckReport{Files: len(files)}
	err = s.blobs.Walk(ctx, func(path string, _ int64) error {
		report.Blobs++
		if _, ok := known[path]; ok {
			known[path] = true
			return nil
		}
		report.OrphanBlobs = append(report.OrphanBlobs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking blobs: %w", err)
	}

	for _, f := range files {
		if !known[f.Path] {
			report.MissingBlobs = append(report.MissingBlobs, f.Path)
		}
	}

	for _, p := range report.MissingBlobs {
		s.inconsistent(InconsistencyMissingBlob, "path", p)
	}
	for _, p := range report.OrphanBlobs {
		s.inconsistent(InconsistencyOrphanBlob, "path", p)
	}
	s.logger.Info("consistency check complete", "files", report.Files, "blobs", report.Blobs,
		"missing", len(report.MissingBlobs), "orphaned", len(report.OrphanBlobs))
	return report, nil
}
