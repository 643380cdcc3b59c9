package testutil

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"testing"
)

// ZipEntry describes one member of an archive built by BuildZip.
// A Name ending in "/" produces a directory entry. A zero Mode means a
// regular file.
type ZipEntry struct {
	Name string
	Body string
	Mode fs.FileMode
}

// BuildZip returns the bytes of a zip archive holding entries in order.
func BuildZip(t *testing.T, entries ...ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if e.Mode != 0 {
			hdr.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", e.Name, err)
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("writing zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// Files is shorthand for BuildZip with regular files keyed by name.
func Files(t *testing.T, names ...string) []byte {
	t.Helper()
	entries := make([]ZipEntry, len(names))
	for i, n := range names {
		entries[i] = ZipEntry{Name: n, Body: "content of " + n}
	}
	return BuildZip(t, entries...)
}
