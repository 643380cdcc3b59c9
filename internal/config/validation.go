package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg using struct tags, then the rules tags cannot
// express: the fields each tagged union member requires.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	switch cfg.Blob.Type {
	case "filesystem":
		if cfg.Blob.Root == "" {
			return fmt.Errorf("blob: root is required for type filesystem")
		}
	case "s3":
		if cfg.Blob.S3Bucket == "" {
			return fmt.Errorf("blob: s3_bucket is required for type s3")
		}
		if (cfg.Blob.S3AccessKeyID == "") != (cfg.Blob.S3SecretAccessKey == "") {
			return fmt.Errorf("blob: s3_access_key_id and s3_secret_access_key must be set together")
		}
	}

	if cfg.Database.Type == "sqlite" && cfg.Database.DataDir == "" {
		return fmt.Errorf("database: data_dir is required for type sqlite")
	}

	if cfg.Cache.Size > 0 && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache: ttl must be positive when size is set")
	}

	if cfg.Encryption.Enabled && (cfg.Encryption.PublicKeyPath == "" || cfg.Encryption.PrivateKeyPath == "") {
		return fmt.Errorf("encryption: public_key_path and private_key_path are required when enabled")
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		if e.Field() == "JWTSecret" {
			// Never echo the secret.
			return fmt.Errorf("%s: validation failed on '%s' tag", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
