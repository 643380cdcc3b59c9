package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"cloudstore/internal/drive"
)

// runStoreContract exercises the behavior every drive.BlobStore shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) drive.BlobStore) {
	ctx := context.Background()

	t.Run("put then read round-trips", func(t *testing.T) {
		s := newStore(t)

		n, err := s.Put(ctx, "user_1/docs/a.txt", strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if n != 11 {
			t.Errorf("Put() wrote %d bytes, want 11", n)
		}

		if got := readBlob(t, s, "user_1/docs/a.txt"); got != "hello world" {
			t.Errorf("Open() content = %q, want %q", got, "hello world")
		}

		size, err := s.Size(ctx, "user_1/docs/a.txt")
		if err != nil || size != 11 {
			t.Errorf("Size() = %d, %v; want 11, nil", size, err)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		s.Put(ctx, "user_1/a.txt", strings.NewReader("first"))
		s.Put(ctx, "user_1/a.txt", strings.NewReader("second"))

		if got := readBlob(t, s, "user_1/a.txt"); got != "second" {
			t.Errorf("content = %q, want %q", got, "second")
		}
	})

	t.Run("missing blob", func(t *testing.T) {
		s := newStore(t)

		if _, err := s.Open(ctx, "user_1/missing.txt"); !errors.Is(err, drive.ErrBlobNotFound) {
			t.Errorf("Open() error = %v, want ErrBlobNotFound", err)
		}
		if _, err := s.Size(ctx, "user_1/missing.txt"); !errors.Is(err, drive.ErrBlobNotFound) {
			t.Errorf("Size() error = %v, want ErrBlobNotFound", err)
		}
		ok, err := s.Exists(ctx, "user_1/missing.txt")
		if err != nil || ok {
			t.Errorf("Exists() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("rename moves content", func(t *testing.T) {
		s := newStore(t)
		s.Put(ctx, "user_1/a.txt", strings.NewReader("data"))

		if err := s.Rename(ctx, "user_1/a.txt", "user_1/new/dir/b.txt"); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
		if ok, _ := s.Exists(ctx, "user_1/a.txt"); ok {
			t.Error("old blob still exists after rename")
		}
		if got := readBlob(t, s, "user_1/new/dir/b.txt"); got != "data" {
			t.Errorf("renamed content = %q, want %q", got, "data")
		}
	})

	t.Run("rename errors", func(t *testing.T) {
		s := newStore(t)
		s.Put(ctx, "user_1/a.txt", strings.NewReader("a"))
		s.Put(ctx, "user_1/b.txt", strings.NewReader("b"))

		if err := s.Rename(ctx, "user_1/missing.txt", "user_1/c.txt"); !errors.Is(err, drive.ErrBlobNotFound) {
			t.Errorf("Rename() missing source error = %v, want ErrBlobNotFound", err)
		}
		if err := s.Rename(ctx, "user_1/a.txt", "user_1/b.txt"); !errors.Is(err, drive.ErrBlobExists) {
			t.Errorf("Rename() onto existing error = %v, want ErrBlobExists", err)
		}
		if got := readBlob(t, s, "user_1/b.txt"); got != "b" {
			t.Errorf("target content changed to %q", got)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		s.Put(ctx, "user_1/a.txt", strings.NewReader("a"))

		if err := s.Delete(ctx, "user_1/a.txt"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if ok, _ := s.Exists(ctx, "user_1/a.txt"); ok {
			t.Error("blob still exists after delete")
		}
		if err := s.Delete(ctx, "user_1/a.txt"); err != nil {
			t.Errorf("second Delete() error = %v", err)
		}
	})

	t.Run("move in consumes local file", func(t *testing.T) {
		s := newStore(t)
		local := filepath.Join(t.TempDir(), "staged")
		if err := os.WriteFile(local, []byte("staged"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := s.MoveIn(ctx, "user_1/nested/y.txt", local); err != nil {
			t.Fatalf("MoveIn() error = %v", err)
		}
		if got := readBlob(t, s, "user_1/nested/y.txt"); got != "staged" {
			t.Errorf("content = %q, want %q", got, "staged")
		}
		if _, err := os.Stat(local); !os.IsNotExist(err) {
			t.Errorf("local file still present: %v", err)
		}
	})

	t.Run("walk lists every blob", func(t *testing.T) {
		s := newStore(t)
		s.Put(ctx, "user_1/a.txt", strings.NewReader("a"))
		s.Put(ctx, "user_1/docs/b.txt", strings.NewReader("bb"))
		s.Put(ctx, "user_2/c.txt", strings.NewReader("ccc"))

		got := map[string]int64{}
		err := s.Walk(ctx, func(path string, size int64) error {
			got[path] = size
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		want := map[string]int64{"user_1/a.txt": 1, "user_1/docs/b.txt": 2, "user_2/c.txt": 3}
		if len(got) != len(want) {
			t.Fatalf("Walk() visited %v, want %v", sortedPaths(got), sortedPaths(want))
		}
		for p, size := range want {
			if got[p] != size {
				t.Errorf("Walk() size of %s = %d, want %d", p, got[p], size)
			}
		}
	})

	t.Run("rejects escaping paths", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []string{"", "/etc/passwd", "user_1/../../x", "user_1//a", `user_1\a`} {
			if _, err := s.Put(ctx, p, strings.NewReader("x")); !errors.Is(err, drive.ErrInvalidPath) {
				t.Errorf("Put(%q) error = %v, want ErrInvalidPath", p, err)
			}
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		s := newStore(t)
		if err := s.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func readBlob(t *testing.T, s drive.BlobStore, path string) string {
	t.Helper()
	rc, err := s.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", path, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func sortedPaths(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
