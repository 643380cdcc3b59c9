package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for cloudstore.
type Config struct {
	BaseDir    string           `toml:"base_dir" validate:"required"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Server     ServerConfig     `toml:"server"`
	Auth       AuthConfig       `toml:"auth"`
	Blob       BlobConfig       `toml:"blob"`
	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Cache      CacheConfig      `toml:"cache"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string   `toml:"addr" validate:"required"`
	PublicBaseURL   string   `toml:"public_base_url" validate:"omitempty,url"` // prefix of public link URLs
	ReadTimeout     Duration `toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    Duration `toml:"write_timeout" validate:"gte=0"`
	IdleTimeout     Duration `toml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" validate:"gt=0"`
	MaxUploadSize   int64    `toml:"max_upload_size" validate:"gt=0"` // bytes, applies to uploads and archives
}

// AuthConfig holds the bearer token verification settings. Tokens are
// issued elsewhere with the same secret.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret" validate:"required,min=32"`
	Issuer    string `toml:"issuer,omitempty"`
}

// BlobConfig represents configuration for the blob store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobConfig struct {
	Type string `toml:"type" validate:"required,oneof=filesystem memory s3"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type        string `toml:"type" validate:"required,oneof=sqlite memory"`
	DataDir     string `toml:"data_dir,omitempty"` // only used for type=sqlite
	AutoMigrate bool   `toml:"auto_migrate"`
}

// StagingConfig represents configuration for archive extraction.
type StagingConfig struct {
	Dir     string   `toml:"dir,omitempty"`
	MaxSize int64    `toml:"max_size" validate:"gte=0"` // max uncompressed archive size in bytes; 0 means the default
	Ignore  []string `toml:"ignore,omitempty"`          // entry patterns skipped on import

	// IgnoreFile holds further patterns, one per line. A missing file is
	// not an error.
	IgnoreFile string `toml:"ignore_file,omitempty"`
}

// CacheConfig sizes the public link cache. Size 0 disables it.
type CacheConfig struct {
	Size int      `toml:"size" validate:"gte=0"`
	TTL  Duration `toml:"ttl" validate:"gte=0"`
}

// EncryptionConfig enables age encryption of blob content at rest. The
// private key file is itself encrypted with a passphrase.
type EncryptionConfig struct {
	Enabled        bool   `toml:"enabled"`
	Type           string `toml:"type,omitempty" validate:"omitempty,oneof=age test"` // "age" when empty
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// Duration is a time.Duration written as a string such as "15s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewConfig creates a new Config rooted at baseDir with default settings.
// The JWT secret is left empty.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Server: ServerConfig{
			Addr:            ":8080",
			PublicBaseURL:   "http://localhost:8080",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxUploadSize:   1 << 30,
		},
		Auth: AuthConfig{Issuer: "cloudstore"},
		Blob: BlobConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "blobs"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Staging: StagingConfig{
			Dir:        filepath.Join(baseDir, "staging"),
			MaxSize:    1 << 30,
			Ignore:     []string{},
			IgnoreFile: filepath.Join(baseDir, "import.ignore"),
		},
		Cache: CacheConfig{
			Size: 1024,
			TTL:  Duration(5 * time.Minute),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "public.txt"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "private.age"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path. The file holds
// the JWT secret, so it is only readable by its owner.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
