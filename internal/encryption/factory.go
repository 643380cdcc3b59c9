package encryption

import (
	"fmt"

	"cloudstore/internal/config"
	"cloudstore/internal/drive"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (drive.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}

// Open creates the configured Encryptor and unlocks it with passphrase.
func Open(cfg config.EncryptionConfig, passphrase string) (drive.Encryptor, drive.DecryptionContext, error) {
	enc, err := NewEncryptorFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if !enc.IsConfigured() {
		return nil, nil, fmt.Errorf("encryption keys not found (run keys init)")
	}
	dc, err := enc.Unlock(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("unlocking encryption key: %w", err)
	}
	return enc, dc, nil
}
