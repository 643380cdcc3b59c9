package encryption

import (
	"bytes"
	"path/filepath"
	"testing"

	"cloudstore/internal/config"
	"cloudstore/internal/drive"
)

func keyConfig(t *testing.T, typ string) config.EncryptionConfig {
	t.Helper()
	dir := t.TempDir()
	return config.EncryptionConfig{
		Enabled:        true,
		Type:           typ,
		PublicKeyPath:  filepath.Join(dir, "keys", "public.txt"),
		PrivateKeyPath: filepath.Join(dir, "keys", "private.age"),
	}
}

func roundTrip(t *testing.T, enc drive.Encryptor, dc drive.DecryptionContext, input []byte) []byte {
	t.Helper()
	var sealed bytes.Buffer
	if err := enc.Encrypt(bytes.NewReader(input), &sealed); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if len(input) > 0 && bytes.Equal(sealed.Bytes(), input) {
		t.Error("ciphertext equals plaintext")
	}
	var plain bytes.Buffer
	if err := dc.Decrypt(bytes.NewReader(sealed.Bytes()), &plain); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	return plain.Bytes()
}

func TestAgeEncryptor(t *testing.T) {
	t.Parallel()

	const passphrase = "correct horse battery staple"
	e := NewAgeEncryptor(keyConfig(t, "age"))

	if e.IsConfigured() {
		t.Fatal("IsConfigured() = true before Setup")
	}
	var buf bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("x")), &buf); err == nil {
		t.Error("Encrypt() before Setup succeeded")
	}
	if _, err := e.Unlock(passphrase); err == nil {
		t.Error("Unlock() before Setup succeeded")
	}

	if err := e.Setup(""); err == nil {
		t.Error("Setup() accepted an empty passphrase")
	}
	if err := e.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Fatal("IsConfigured() = false after Setup")
	}
	if err := e.Setup(passphrase); err == nil {
		t.Error("second Setup() overwrote existing keys")
	}

	if _, err := e.Unlock("wrong"); err == nil {
		t.Error("Unlock() with wrong passphrase succeeded")
	}
	dc, err := e.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	inputs := map[string][]byte{
		"text":   []byte("hello world"),
		"empty":  {},
		"binary": {0x00, 0xff, 0x01, 0xfe},
		"large":  bytes.Repeat([]byte("abcdef"), 10000),
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if got := roundTrip(t, e, dc, input); !bytes.Equal(got, input) {
				t.Errorf("round trip returned %d bytes, want %d", len(got), len(input))
			}
		})
	}
}

func TestTestEncryptor(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	if err := e.Setup("ignored"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.setupCalled || !e.IsConfigured() {
		t.Fatal("TestEncryptor not configured after Setup")
	}
	dc, err := e.Unlock("ignored")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	input := []byte("some file content")
	if got := roundTrip(t, e, dc, input); !bytes.Equal(got, input) {
		t.Errorf("round trip = %q, want %q", got, input)
	}

	var a, b bytes.Buffer
	_ = e.Encrypt(bytes.NewReader(input), &a)
	_ = e.Encrypt(bytes.NewReader(input), &b)
	if !bytes.Equal(a.Bytes(), b.Bytes()) || !bytes.HasPrefix(a.Bytes(), testHeader) {
		t.Error("TestEncryptor output is not deterministic or lacks header")
	}
}

func TestTestDecryptionContextRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "wrong header", input: []byte("NOT_VALID_HEADER_data")},
		{name: "truncated", input: []byte("CS")},
		{name: "empty", input: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := (TestDecryptionContext{}).Decrypt(bytes.NewReader(tt.input), &out); err == nil {
				t.Error("Decrypt() succeeded, want error")
			}
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
		t.Error("NewEncryptorFromConfig() accepted unknown type")
	}

	cfg := keyConfig(t, "")
	if _, _, err := Open(cfg, "pw"); err == nil {
		t.Error("Open() without keys succeeded")
	}
	if err := NewAgeEncryptor(cfg).Setup("pw"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, _, err := Open(cfg, "nope"); err == nil {
		t.Error("Open() with wrong passphrase succeeded")
	}
	enc, dc, err := Open(cfg, "pw")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := roundTrip(t, enc, dc, []byte("payload")); string(got) != "payload" {
		t.Errorf("round trip = %q", got)
	}

	if _, _, err := Open(keyConfig(t, "test"), ""); err != nil {
		t.Errorf("Open(test) error = %v", err)
	}
}
