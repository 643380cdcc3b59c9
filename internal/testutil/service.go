package testutil

import (
	"testing"

	"cloudstore/internal/blobstore"
	"cloudstore/internal/database"
	"cloudstore/internal/drive"
	"cloudstore/internal/staging"
)

// ServiceFixture bundles a drive.Service with the concrete stores behind
// it so tests can inspect both sides of every operation.
type ServiceFixture struct {
	Service *drive.Service
	DB      *database.SQLiteDatabase
	Blobs   *blobstore.MemoryStore
	Staging *staging.Area
	Clock   *StubClock
	IDs     *StubIDGenerator
}

// NewTestService wires a Service over an in-memory database, an in-memory
// blob store and a temp-dir staging area.
func NewTestService(t *testing.T, opts drive.Options) *ServiceFixture {
	t.Helper()

	clock := FixedClock()
	ids := NewStubIDGenerator()
	f := &ServiceFixture{
		DB:      NewTestDatabaseWith(t, clock, ids),
		Blobs:   blobstore.NewMemoryStore(),
		Staging: NewTestStagingArea(t),
		Clock:   clock,
		IDs:     ids,
	}
	f.Service = drive.NewService(f.DB, f.Blobs, f.Staging, drive.NewNopLogger(), opts)
	return f
}
