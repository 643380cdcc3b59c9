package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"cloudstore/internal/database/migrations"
	"cloudstore/internal/database/sqlc"
	"cloudstore/internal/drive"
)

// SQLiteDatabase implements the drive.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   drive.Clock
	idgen   drive.IDGenerator
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock or idgen selects the real implementation.
func NewSQLiteDatabase(path string, clock drive.Clock, idgen drive.IDGenerator) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock drive.Clock, idgen drive.IDGenerator) *SQLiteDatabase {
	if clock == nil {
		clock = drive.RealClock{}
	}
	if idgen == nil {
		idgen = drive.UUIDGenerator{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		idgen:   idgen,
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// File operations

func (s *SQLiteDatabase) CreateFile(ctx context.Context, path string, ownerID int64) (*sqlc.File, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	if err := pathIsDirectory(ctx, qtx, path); err != nil {
		return nil, err
	}

	file, err := qtx.InsertFile(ctx, sqlc.InsertFileParams{
		Path:       path,
		OwnerID:    ownerID,
		UploadedAt: s.clock.Now(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", drive.ErrDuplicatePath, path)
		}
		return nil, fmt.Errorf("inserting file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) FindFileByPath(ctx context.Context, path string) (*sqlc.File, error) {
	file, err := s.queries.GetFileByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by path: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) FindFileByToken(ctx context.Context, token string) (*sqlc.File, error) {
	file, err := s.queries.GetFileByPublicToken(ctx, sql.NullString{String: token, Valid: true})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by token: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) ListFiles(ctx context.Context, ownerID int64) ([]*sqlc.File, error) {
	files, err := s.queries.GetFilesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return filePointers(files), nil
}

func (s *SQLiteDatabase) ListAllFiles(ctx context.Context) ([]*sqlc.File, error) {
	files, err := s.queries.GetAllFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing all files: %w", err)
	}
	return filePointers(files), nil
}

func (s *SQLiteDatabase) RenameFile(ctx context.Context, oldPath, newPath string) (*sqlc.File, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	if err := pathIsDirectory(ctx, qtx, newPath); err != nil {
		return nil, err
	}

	file, err := qtx.UpdateFilePath(ctx, sqlc.UpdateFilePathParams{
		NewPath: newPath,
		OldPath: oldPath,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", drive.ErrDuplicatePath, newPath)
		}
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) DeleteFile(ctx context.Context, path string) error {
	if err := s.queries.DeleteFileByPath(ctx, path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) IssuePublicToken(ctx context.Context, path string) (*sqlc.File, error) {
	return s.setPublicToken(ctx, path, sql.NullString{String: s.idgen.New(), Valid: true})
}

func (s *SQLiteDatabase) RevokePublicToken(ctx context.Context, path string) (*sqlc.File, error) {
	return s.setPublicToken(ctx, path, sql.NullString{})
}

func (s *SQLiteDatabase) setPublicToken(ctx context.Context, path string, token sql.NullString) (*sqlc.File, error) {
	file, err := s.queries.UpdateFilePublicToken(ctx, sqlc.UpdateFilePublicTokenParams{
		PublicToken: token,
		Path:        path,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("updating public token: %w", err)
	}
	return &file, nil
}

// Directory operations

func (s *SQLiteDatabase) CreateDirectory(ctx context.Context, path string, ownerID int64) (*sqlc.Directory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	_, err = qtx.GetFileByPath(ctx, path)
	if err == nil {
		return nil, fmt.Errorf("%w: %s is a file", drive.ErrDuplicatePath, path)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checking for file: %w", err)
	}

	dir, err := qtx.InsertDirectory(ctx, sqlc.InsertDirectoryParams{
		Path:      path,
		OwnerID:   ownerID,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", drive.ErrDuplicatePath, path)
		}
		return nil, fmt.Errorf("inserting directory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &dir, nil
}

func (s *SQLiteDatabase) FindDirectoryByPath(ctx context.Context, path string) (*sqlc.Directory, error) {
	dir, err := s.queries.GetDirectoryByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding directory by path: %w", err)
	}
	return &dir, nil
}

func (s *SQLiteDatabase) ListDirectories(ctx context.Context, ownerID int64) ([]*sqlc.Directory, error) {
	dirs, err := s.queries.GetDirectoriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}

	result := make([]*sqlc.Directory, len(dirs))
	for i := range dirs {
		result[i] = &dirs[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) DeleteDirectory(ctx context.Context, path string) error {
	if err := s.queries.DeleteDirectoryByPath(ctx, path); err != nil {
		return fmt.Errorf("deleting directory: %w", err)
	}
	return nil
}

// Operation journal

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, ownerID int64, operation, parameters string) (*sqlc.Operation, error) {
	op, err := s.queries.InsertOperation(ctx, sqlc.InsertOperationParams{
		OwnerID:    ownerID,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	err := s.queries.UpdateOperationFinished(ctx, sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, ownerID int64, limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.GetOperationsByOwner(ctx, sqlc.GetOperationsByOwnerParams{
		OwnerID: ownerID,
		Limit:   int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*sqlc.Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies all pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Ping verifies the connection is alive.
func (s *SQLiteDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// pathIsDirectory fails with drive.ErrDuplicatePath when path names a directory record.
func pathIsDirectory(ctx context.Context, q *sqlc.Queries, path string) error {
	_, err := q.GetDirectoryByPath(ctx, path)
	if err == nil {
		return fmt.Errorf("%w: %s is a directory", drive.ErrDuplicatePath, path)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for directory: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func filePointers(files []sqlc.File) []*sqlc.File {
	result := make([]*sqlc.File, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result
}

// Compile-time check that SQLiteDatabase implements drive.Database interface
var _ drive.Database = (*SQLiteDatabase)(nil)
