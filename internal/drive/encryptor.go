package drive

import "io"

// Encryptor seals blob content at rest. Sealing needs only the public key;
// opening needs the private key, unlocked once per process.
type Encryptor interface {
	// Setup creates the key pair, protecting the private key with passphrase.
	Setup(passphrase string) error

	Encrypt(r io.Reader, w io.Writer) error

	// Unlock opens the private key. A wrong passphrase is an error.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether Setup has run.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
