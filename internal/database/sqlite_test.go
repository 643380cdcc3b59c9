package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"cloudstore/internal/drive"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (g *seqIDs) New() string {
	g.n++
	return fmt.Sprintf("token-%d", g.n)
}

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:", fixedClock{now: testTime}, &seqIDs{})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if _, err := db.db.Exec(Schema); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteDatabase_CreateFile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and finds a file", func(t *testing.T) {
		db := newTestDB(t)

		created, err := db.CreateFile(ctx, "user_1/a.txt", 1)
		if err != nil {
			t.Fatalf("CreateFile() error = %v", err)
		}
		if created.ID == 0 {
			t.Error("CreateFile() did not assign an id")
		}
		if !created.UploadedAt.Equal(testTime) {
			t.Errorf("UploadedAt = %v, want %v", created.UploadedAt, testTime)
		}
		if created.PublicToken.Valid {
			t.Error("new file should have no public token")
		}

		found, err := db.FindFileByPath(ctx, "user_1/a.txt")
		if err != nil {
			t.Fatalf("FindFileByPath() error = %v", err)
		}
		if found == nil || found.ID != created.ID || found.OwnerID != 1 {
			t.Errorf("FindFileByPath() = %+v, want %+v", found, created)
		}
	})

	t.Run("rejects duplicate file path", func(t *testing.T) {
		db := newTestDB(t)

		if _, err := db.CreateFile(ctx, "user_1/a.txt", 1); err != nil {
			t.Fatalf("CreateFile() error = %v", err)
		}
		_, err := db.CreateFile(ctx, "user_1/a.txt", 1)
		if !errors.Is(err, drive.ErrDuplicatePath) {
			t.Errorf("CreateFile() error = %v, want ErrDuplicatePath", err)
		}
	})

	t.Run("rejects path taken by a directory", func(t *testing.T) {
		db := newTestDB(t)

		if _, err := db.CreateDirectory(ctx, "user_1/docs", 1); err != nil {
			t.Fatalf("CreateDirectory() error = %v", err)
		}
		_, err := db.CreateFile(ctx, "user_1/docs", 1)
		if !errors.Is(err, drive.ErrDuplicatePath) {
			t.Errorf("CreateFile() error = %v, want ErrDuplicatePath", err)
		}
	})
}

func TestSQLiteDatabase_FindFileByPath_NotFound(t *testing.T) {
	db := newTestDB(t)

	file, err := db.FindFileByPath(context.Background(), "user_1/missing.txt")
	if err != nil {
		t.Fatalf("FindFileByPath() error = %v", err)
	}
	if file != nil {
		t.Errorf("FindFileByPath() = %v, want nil", file)
	}
}

func TestSQLiteDatabase_ListFiles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for _, p := range []struct {
		path  string
		owner int64
	}{
		{"user_1/b.txt", 1},
		{"user_1/a.txt", 1},
		{"user_2/c.txt", 2},
	} {
		if _, err := db.CreateFile(ctx, p.path, p.owner); err != nil {
			t.Fatalf("CreateFile(%s) error = %v", p.path, err)
		}
	}

	files, err := db.ListFiles(ctx, 1)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListFiles() returned %d files, want 2", len(files))
	}
	if files[0].Path != "user_1/a.txt" || files[1].Path != "user_1/b.txt" {
		t.Errorf("ListFiles() order = [%s %s], want sorted by path", files[0].Path, files[1].Path)
	}

	all, err := db.ListAllFiles(ctx)
	if err != nil {
		t.Fatalf("ListAllFiles() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAllFiles() returned %d files, want 3", len(all))
	}
}

func TestSQLiteDatabase_RenameFile(t *testing.T) {
	ctx := context.Background()

	t.Run("renames in place", func(t *testing.T) {
		db := newTestDB(t)
		created, _ := db.CreateFile(ctx, "user_1/a.txt", 1)

		renamed, err := db.RenameFile(ctx, "user_1/a.txt", "user_1/docs/b.txt")
		if err != nil {
			t.Fatalf("RenameFile() error = %v", err)
		}
		if renamed.ID != created.ID || renamed.Path != "user_1/docs/b.txt" {
			t.Errorf("RenameFile() = %+v", renamed)
		}

		old, _ := db.FindFileByPath(ctx, "user_1/a.txt")
		if old != nil {
			t.Error("old path still resolves after rename")
		}
	})

	t.Run("returns nil for missing source", func(t *testing.T) {
		db := newTestDB(t)

		renamed, err := db.RenameFile(ctx, "user_1/missing.txt", "user_1/b.txt")
		if err != nil {
			t.Fatalf("RenameFile() error = %v", err)
		}
		if renamed != nil {
			t.Errorf("RenameFile() = %v, want nil", renamed)
		}
	})

	t.Run("rejects occupied target", func(t *testing.T) {
		db := newTestDB(t)
		db.CreateFile(ctx, "user_1/a.txt", 1)
		db.CreateFile(ctx, "user_1/b.txt", 1)
		db.CreateDirectory(ctx, "user_1/docs", 1)

		if _, err := db.RenameFile(ctx, "user_1/a.txt", "user_1/b.txt"); !errors.Is(err, drive.ErrDuplicatePath) {
			t.Errorf("RenameFile() onto file error = %v, want ErrDuplicatePath", err)
		}
		if _, err := db.RenameFile(ctx, "user_1/a.txt", "user_1/docs"); !errors.Is(err, drive.ErrDuplicatePath) {
			t.Errorf("RenameFile() onto directory error = %v, want ErrDuplicatePath", err)
		}
	})
}

func TestSQLiteDatabase_DeleteFile(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.CreateFile(ctx, "user_1/a.txt", 1)

	if err := db.DeleteFile(ctx, "user_1/a.txt"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if err := db.DeleteFile(ctx, "user_1/a.txt"); err != nil {
		t.Errorf("second DeleteFile() error = %v, want nil", err)
	}
	if f, _ := db.FindFileByPath(ctx, "user_1/a.txt"); f != nil {
		t.Error("file still present after delete")
	}
}

func TestSQLiteDatabase_PublicToken(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.CreateFile(ctx, "user_1/a.txt", 1)

	first, err := db.IssuePublicToken(ctx, "user_1/a.txt")
	if err != nil {
		t.Fatalf("IssuePublicToken() error = %v", err)
	}
	if !first.PublicToken.Valid || first.PublicToken.String != "token-1" {
		t.Fatalf("IssuePublicToken() token = %v, want token-1", first.PublicToken)
	}

	second, err := db.IssuePublicToken(ctx, "user_1/a.txt")
	if err != nil {
		t.Fatalf("IssuePublicToken() error = %v", err)
	}
	if second.PublicToken.String != "token-2" {
		t.Errorf("reissued token = %q, want token-2", second.PublicToken.String)
	}

	if f, _ := db.FindFileByToken(ctx, "token-1"); f != nil {
		t.Error("rotated token still resolves")
	}
	f, err := db.FindFileByToken(ctx, "token-2")
	if err != nil || f == nil || f.Path != "user_1/a.txt" {
		t.Errorf("FindFileByToken() = %v, %v", f, err)
	}

	missing, err := db.IssuePublicToken(ctx, "user_1/missing.txt")
	if err != nil || missing != nil {
		t.Errorf("IssuePublicToken() for missing path = %v, %v; want nil, nil", missing, err)
	}

	revoked, err := db.RevokePublicToken(ctx, "user_1/a.txt")
	if err != nil {
		t.Fatalf("RevokePublicToken() error = %v", err)
	}
	if revoked.PublicToken.Valid {
		t.Error("token still set after revoke")
	}
	if f, _ := db.FindFileByToken(ctx, "token-2"); f != nil {
		t.Error("revoked token still resolves")
	}
}

func TestSQLiteDatabase_Directories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	created, err := db.CreateDirectory(ctx, "user_1/docs", 1)
	if err != nil {
		t.Fatalf("CreateDirectory() error = %v", err)
	}
	if !created.CreatedAt.Equal(testTime) {
		t.Errorf("CreatedAt = %v, want %v", created.CreatedAt, testTime)
	}

	if _, err := db.CreateDirectory(ctx, "user_1/docs", 1); !errors.Is(err, drive.ErrDuplicatePath) {
		t.Errorf("duplicate CreateDirectory() error = %v, want ErrDuplicatePath", err)
	}

	db.CreateFile(ctx, "user_1/a.txt", 1)
	if _, err := db.CreateDirectory(ctx, "user_1/a.txt", 1); !errors.Is(err, drive.ErrDuplicatePath) {
		t.Errorf("CreateDirectory() over file error = %v, want ErrDuplicatePath", err)
	}

	db.CreateDirectory(ctx, "user_2/other", 2)
	dirs, err := db.ListDirectories(ctx, 1)
	if err != nil {
		t.Fatalf("ListDirectories() error = %v", err)
	}
	if len(dirs) != 1 || dirs[0].Path != "user_1/docs" {
		t.Errorf("ListDirectories() = %v", dirs)
	}

	if err := db.DeleteDirectory(ctx, "user_1/docs"); err != nil {
		t.Fatalf("DeleteDirectory() error = %v", err)
	}
	if d, _ := db.FindDirectoryByPath(ctx, "user_1/docs"); d != nil {
		t.Error("directory still present after delete")
	}
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first, err := db.CreateOperation(ctx, 1, "upload", "a.txt")
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if first.Status != "running" || first.FinishedAt.Valid {
		t.Errorf("new operation = %+v, want running and unfinished", first)
	}
	if err := db.FinishOperation(ctx, first.ID, "success"); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}
	second, _ := db.CreateOperation(ctx, 1, "delete", "a.txt")
	db.CreateOperation(ctx, 2, "upload", "b.txt")

	ops, err := db.ListOperations(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("ListOperations() returned %d, want 2", len(ops))
	}
	if ops[0].ID != second.ID {
		t.Errorf("ListOperations() newest = %d, want %d", ops[0].ID, second.ID)
	}
	if ops[1].Status != "success" || !ops[1].FinishedAt.Valid {
		t.Errorf("finished operation = %+v", ops[1])
	}

	limited, _ := db.ListOperations(ctx, 1, 1)
	if len(limited) != 1 {
		t.Errorf("ListOperations(limit=1) returned %d", len(limited))
	}
}

func TestSQLiteDatabase_FileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cloudstore.db")

	db, err := NewSQLiteDatabase(path, nil, nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() on fresh database expected error")
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after Migrate() error = %v", err)
	}

	if _, err := db.CreateFile(ctx, "user_1/a.txt", 1); err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}
