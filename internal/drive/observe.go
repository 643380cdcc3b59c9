package drive

import "cloudstore/internal/database/sqlc"

// Metrics receives domain events worth counting.
type Metrics interface {
	// Inconsistency records a divergence between the metadata store and
	// the blob store that was not repaired.
	Inconsistency(kind string)
	// ImportEntry records the outcome of one archive entry.
	ImportEntry(result string)
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) Inconsistency(string) {}
func (NopMetrics) ImportEntry(string)   {}

// LinkCache memoizes public token lookups.
type LinkCache interface {
	Get(token string) (*sqlc.File, bool)
	Add(token string, file *sqlc.File)
	Remove(token string)
}

// Inconsistency kinds.
const (
	InconsistencyOrphanBlob   = "orphan_blob"
	InconsistencyMissingBlob  = "missing_blob"
	InconsistencyRenameUndo   = "rename_rollback"
	InconsistencyStaleRecord  = "stale_record"
	InconsistencyDuplicatePut = "duplicate_upload"
)
