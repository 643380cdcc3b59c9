package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"cloudstore/internal/drive"
)

// EncryptedStore wraps a drive.BlobStore and encrypts content at rest.
// Sizes reported by Put, Size and Walk are plaintext sizes.
type EncryptedStore struct {
	inner drive.BlobStore
	enc   drive.Encryptor
	dc    drive.DecryptionContext
}

var _ drive.BlobStore = (*EncryptedStore)(nil)

// NewEncryptedStore wraps inner. dc must come from enc.Unlock.
func NewEncryptedStore(inner drive.BlobStore, enc drive.Encryptor, dc drive.DecryptionContext) *EncryptedStore {
	return &EncryptedStore{inner: inner, enc: enc, dc: dc}
}

// Put encrypts r into the wrapped store and returns the plaintext length.
func (s *EncryptedStore) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	counted := &countingReader{r: r}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.enc.Encrypt(counted, pw))
	}()

	_, err := s.inner.Put(ctx, path, pr)
	pr.Close()
	if err != nil {
		return 0, fmt.Errorf("storing encrypted blob: %w", err)
	}
	return counted.n, nil
}

// Open returns a reader that decrypts the stored blob as it is read.
func (s *EncryptedStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.inner.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	go func() {
		err := s.dc.Decrypt(rc, pw)
		rc.Close()
		pw.CloseWithError(err)
	}()
	return pr, nil
}

func (s *EncryptedStore) Exists(ctx context.Context, path string) (bool, error) {
	return s.inner.Exists(ctx, path)
}

// Size decrypts the blob and counts the plaintext bytes.
func (s *EncryptedStore) Size(ctx context.Context, path string) (int64, error) {
	rc, err := s.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0, fmt.Errorf("decrypting blob %s: %w", path, err)
	}
	return n, nil
}

func (s *EncryptedStore) Rename(ctx context.Context, oldPath, newPath string) error {
	return s.inner.Rename(ctx, oldPath, newPath)
}

func (s *EncryptedStore) Delete(ctx context.Context, path string) error {
	return s.inner.Delete(ctx, path)
}

// MoveIn encrypts the local file into the store and removes it.
func (s *EncryptedStore) MoveIn(ctx context.Context, path, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening staged file: %w", err)
	}
	_, err = s.Put(ctx, path, f)
	f.Close()
	if err != nil {
		return err
	}
	return os.Remove(localPath)
}

// Walk visits every blob with its plaintext size.
func (s *EncryptedStore) Walk(ctx context.Context, fn func(path string, size int64) error) error {
	return s.inner.Walk(ctx, func(path string, _ int64) error {
		size, err := s.Size(ctx, path)
		if err != nil {
			return err
		}
		return fn(path, size)
	})
}

// ValidateSetup checks the wrapped store and that the key pair round-trips.
func (s *EncryptedStore) ValidateSetup(ctx context.Context) error {
	if err := s.inner.ValidateSetup(ctx); err != nil {
		return err
	}
	probe := []byte("cloudstore")
	var sealed, plain bytes.Buffer
	if err := s.enc.Encrypt(bytes.NewReader(probe), &sealed); err != nil {
		return fmt.Errorf("encryption probe: %w", err)
	}
	if err := s.dc.Decrypt(&sealed, &plain); err != nil {
		return fmt.Errorf("decryption probe: %w", err)
	}
	if !bytes.Equal(plain.Bytes(), probe) {
		return fmt.Errorf("encryption probe: key pair mismatch")
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
