package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cloudstore/internal/app"
	"cloudstore/internal/config"
	"cloudstore/internal/database"
	"cloudstore/internal/encryption"
	"cloudstore/internal/server"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, error) {
	loc, err := app.DefaultLocations()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(loc.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// scope identifies the CLI command being run in log lines.
func newApp(ctx context.Context, scope string) (*app.App, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

// newSecret returns a random hex string suitable as an HS256 secret.
func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// readPassphrase prompts for a passphrase without echo. When stdin is not
// a terminal it falls back to the passphrase environment variable.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		p := os.Getenv(app.PassphraseEnv)
		if p == "" {
			return "", fmt.Errorf("stdin is not a terminal and %s is not set", app.PassphraseEnv)
		}
		return p, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "cloudstore",
	Short:        "Multi-user cloud file storage service",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := app.DefaultLocations()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		secret, err := newSecret()
		if err != nil {
			return err
		}

		cfg := config.NewConfig(loc.BaseDir)
		cfg.Auth.JWTSecret = secret

		if err := config.Init(loc.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", loc.ConfigPath)
		fmt.Printf("Base Dir: %s\n", loc.BaseDir)
		fmt.Printf("Blobs:    %s\n", cfg.Blob.Root)
		fmt.Printf("Staging:  %s\n", cfg.Staging.Dir)
		fmt.Println("A JWT secret was generated; share it with the service that issues tokens.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := app.DefaultLocations()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(loc.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", loc.ConfigPath)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Log Level:    %s\n", cfg.LogLevel)
		fmt.Printf("Listen:       %s\n", cfg.Server.Addr)
		fmt.Printf("Public URL:   %s\n", cfg.Server.PublicBaseURL)
		fmt.Printf("Blob Store:   %s\n", cfg.Blob.Type)
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Staging Dir:  %s\n", cfg.Staging.Dir)
		fmt.Printf("Link Cache:   %d entries, ttl %s\n", cfg.Cache.Size, cfg.Cache.TTL.Std())
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		db, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Println("Database schema is up to date.")
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, cfg, err := newApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := server.NewFromApp(cfg, a)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show an owner's file count and stored size",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetInt64("owner")

		a, _, err := newApp(cmd.Context(), "stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats(cmd.Context(), owner)
		if err != nil {
			return err
		}
		fmt.Printf("Files: %d\n", stats.TotalFiles)
		fmt.Printf("Size:  %d bytes\n", stats.TotalSize)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View an owner's operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetInt64("owner")
		limit, _ := cmd.Flags().GetInt("limit")

		a, _, err := newApp(cmd.Context(), "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), owner, limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare file records with stored content",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd.Context(), "check")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Check(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Records: %d\n", report.Files)
		fmt.Printf("Blobs:   %d\n", report.Blobs)
		for _, p := range report.MissingBlobs {
			fmt.Printf("missing content  %s\n", p)
		}
		for _, p := range report.OrphanBlobs {
			fmt.Printf("orphaned blob    %s\n", p)
		}
		if !report.Consistent() {
			return fmt.Errorf("found %d missing and %d orphaned blobs",
				len(report.MissingBlobs), len(report.OrphanBlobs))
		}
		fmt.Println("Consistent.")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage blob encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		if enc.IsConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			confirm, err := readPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if confirm != passphrase {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Public key: %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		if !cfg.Encryption.Enabled {
			fmt.Println("Set enabled = true in [encryption] to encrypt new uploads.")
		}
		return nil
	},
}

var keysCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the passphrase unlocks the private key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if _, _, err := encryption.Open(cfg.Encryption, passphrase); err != nil {
			return err
		}
		fmt.Println("Key unlocked.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int64("owner", 0, "Owner id")
	statsCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int64("owner", 0, "Owner id")
	historyCmd.MarkFlagRequired("owner")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(checkCmd)
}
