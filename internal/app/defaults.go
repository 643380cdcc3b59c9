package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate cloudstore.
const (
	EnvConfigPath = "CLOUDSTORE_CONFIG_PATH"
	EnvHome       = "CLOUDSTORE_HOME"
)

// Locations is where cloudstore keeps its config file and its data. The
// data directory holds the sqlite database, the blob root, the staging
// area, logs and encryption keys unless the config file moves them.
type Locations struct {
	ConfigPath string
	BaseDir    string
}

// DefaultLocations resolves Locations from the environment, falling back
// to ~/.config/cloudstore.toml and the XDG data dir ~/.local/share/cloudstore.
func DefaultLocations() (*Locations, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "cloudstore.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(EnvHome, ".local", "share", "cloudstore")
	if err != nil {
		return nil, err
	}
	return &Locations{ConfigPath: configPath, BaseDir: baseDir}, nil
}

func envOrHome(env string, below ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{home}, below...)...), nil
}
