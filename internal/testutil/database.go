package testutil

import (
	"testing"

	"cloudstore/internal/database"
)

// NewTestDatabase creates an in-memory SQLite database with the schema
// applied, the fixed clock, and sequential public tokens. It is closed
// when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	return NewTestDatabaseWith(t, FixedClock(), NewStubIDGenerator())
}

// NewTestDatabaseWith is NewTestDatabase with an explicit clock and
// token generator.
func NewTestDatabaseWith(t *testing.T, clock *StubClock, ids *StubIDGenerator) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, clock, ids)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
