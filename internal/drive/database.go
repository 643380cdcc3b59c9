package drive

import (
	"context"

	"cloudstore/internal/database/sqlc"
)

// Database is the metadata store: file records, directory records and the
// operation journal. Each method runs in its own transaction. Lookups
// return nil and no error when nothing matches.
type Database interface {
	// File operations

	// CreateFile inserts a file record. It fails with ErrDuplicatePath when
	// path already names a file or a directory.
	CreateFile(ctx context.Context, path string, ownerID int64) (*sqlc.File, error)

	FindFileByPath(ctx context.Context, path string) (*sqlc.File, error)

	FindFileByToken(ctx context.Context, token string) (*sqlc.File, error)

	// ListFiles returns the owner's file records ordered by path.
	ListFiles(ctx context.Context, ownerID int64) ([]*sqlc.File, error)

	// ListAllFiles returns every file record ordered by path.
	ListAllFiles(ctx context.Context) ([]*sqlc.File, error)

	// RenameFile moves the record at oldPath to newPath and returns it.
	// Returns nil when oldPath is absent and ErrDuplicatePath when newPath
	// is already taken.
	RenameFile(ctx context.Context, oldPath, newPath string) (*sqlc.File, error)

	// DeleteFile removes the record at path. Absent paths are a no-op.
	DeleteFile(ctx context.Context, path string) error

	// IssuePublicToken stores a fresh random token on the record,
	// replacing any previous one.
	IssuePublicToken(ctx context.Context, path string) (*sqlc.File, error)

	// RevokePublicToken clears the record's token.
	RevokePublicToken(ctx context.Context, path string) (*sqlc.File, error)

	// Directory operations

	// CreateDirectory inserts a directory record. It fails with
	// ErrDuplicatePath when path already names a file or a directory.
	CreateDirectory(ctx context.Context, path string, ownerID int64) (*sqlc.Directory, error)

	FindDirectoryByPath(ctx context.Context, path string) (*sqlc.Directory, error)

	// ListDirectories returns the owner's directory records ordered by path.
	ListDirectories(ctx context.Context, ownerID int64) ([]*sqlc.Directory, error)

	// DeleteDirectory removes the directory record at path. Absent paths
	// are a no-op.
	DeleteDirectory(ctx context.Context, path string) error

	// Operation journal

	CreateOperation(ctx context.Context, ownerID int64, operation, parameters string) (*sqlc.Operation, error)

	FinishOperation(ctx context.Context, id int64, status string) error

	// ListOperations returns the owner's most recent operations, newest first.
	ListOperations(ctx context.Context, ownerID int64, limit int) ([]*sqlc.Operation, error)

	// Close closes the database connection.
	Close() error
}
