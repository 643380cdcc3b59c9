package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"cloudstore/internal/drive"
)

var testHeader = []byte("CSENC\x00\x00\x00")

// TestEncryptor frames content with a fixed header and no cryptography.
// Stored bytes differ from the plaintext, which is all tests need.
type TestEncryptor struct {
	setupCalled bool
}

var _ drive.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, io.MultiReader(bytes.NewReader(testHeader), r))
	return err
}

func (e *TestEncryptor) Unlock(string) (drive.DecryptionContext, error) {
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the header written by TestEncryptor.
type TestDecryptionContext struct{}

var _ drive.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return errors.New("not written by TestEncryptor")
	}
	_, err := io.Copy(w, r)
	return err
}
