package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloudstore/internal/blobstore"
	"cloudstore/internal/cache"
	"cloudstore/internal/config"
	"cloudstore/internal/database"
	"cloudstore/internal/database/sqlc"
	"cloudstore/internal/drive"
	"cloudstore/internal/encryption"
	"cloudstore/internal/metrics"
	"cloudstore/internal/staging"
)

// PassphraseEnv names the environment variable holding the passphrase
// that unlocks the blob encryption key.
const PassphraseEnv = "CLOUDSTORE_KEY_PASSPHRASE"

// App is the application layer between the transports (HTTP, CLI) and
// drive.Service. It constructs all dependencies from config, journals
// every mutating call, and releases resources on Close.
type App struct {
	db      drive.Database
	service *drive.Service
	journal *journal
	logger  *slog.Logger
	logFile *os.File
}

// Deps are the collaborators of an App built without a config file.
type Deps struct {
	Database drive.Database
	Blobs    drive.BlobStore
	Staging  drive.StagingArea
	Logger   *slog.Logger
	Options  drive.Options
}

// NewFromDeps wires an App over existing stores. Close closes Database.
func NewFromDeps(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := d.Options
	if opts.Metrics == nil {
		opts.Metrics = metrics.Recorder{}
	}
	return &App{
		db:      d.Database,
		service: drive.NewService(d.Database, d.Blobs, d.Staging, &slogAdapter{l: logger}, opts),
		journal: &journal{db: d.Database, logger: logger, metrics: metrics.Recorder{}},
		logger:  logger,
	}
}

// New creates a fully wired App from the given config. scope identifies
// the command being run (e.g. "serve", "check") in log lines. The caller
// must call Close when done.
func New(ctx context.Context, cfg *config.Config, scope string) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logFile, err := NewLogger(cfg.LogDir, cfg.LogLevel, scope)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(ctx, cfg.Blob)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}
	if cfg.Encryption.Enabled {
		enc, dc, err := encryption.Open(cfg.Encryption, os.Getenv(PassphraseEnv))
		if err != nil {
			db.Close()
			logFile.Close()
			return nil, err
		}
		blobs = blobstore.NewEncryptedStore(blobs, enc, dc)
	}
	if err := blobs.ValidateSetup(ctx); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("validating blob store: %w", err)
	}

	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging, &slogAdapter{l: logger})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, err
	}

	opts := drive.Options{PublicBaseURL: cfg.Server.PublicBaseURL}
	if cfg.Cache.Size > 0 {
		opts.Cache = cache.NewLinkCache(cfg.Cache.Size, cfg.Cache.TTL.Std())
	}

	a := NewFromDeps(Deps{
		Database: db,
		Blobs:    blobs,
		Staging:  sa,
		Logger:   logger,
		Options:  opts,
	})
	a.logFile = logFile
	logger.Debug("app ready",
		"blob_store", cfg.Blob.Type,
		"database", db.Path(),
		"encrypted", cfg.Encryption.Enabled,
	)
	return a, nil
}

// openDatabase opens the configured database and brings its schema up to
// date, or refuses to start when auto_migrate is off and it is behind.
func openDatabase(cfg config.DatabaseConfig) (*database.SQLiteDatabase, error) {
	db, err := database.NewDatabaseFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	// An in-memory database starts empty and is always migrated.
	if cfg.AutoMigrate || cfg.Type == "memory" {
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return db, nil
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run migrate): %w", err)
	}
	return db, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Ready reports whether the metadata store answers.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.db.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

// Upload stores a new file at the owner's relative path.
func (a *App) Upload(ctx context.Context, ownerID int64, relative string, r io.Reader) (*sqlc.File, error) {
	var file *sqlc.File
	err := a.journaled(ctx, ownerID, OpUpload, map[string]string{"path": relative}, func() error {
		var err error
		file, err = a.service.Upload(ctx, ownerID, relative, r)
		return err
	})
	return file, err
}

// ImportArchive registers every file of a ZIP archive.
func (a *App) ImportArchive(ctx context.Context, ownerID int64, archive io.ReaderAt, size int64) ([]*sqlc.File, error) {
	var files []*sqlc.File
	err := a.journaled(ctx, ownerID, OpImportArchive, map[string]string{"size": fmt.Sprint(size)}, func() error {
		var err error
		files, err = a.service.ImportArchive(ctx, ownerID, archive, size)
		return err
	})
	return files, err
}

// MakeDirectory records an empty directory.
func (a *App) MakeDirectory(ctx context.Context, ownerID int64, relative string) (*sqlc.Directory, error) {
	var dir *sqlc.Directory
	err := a.journaled(ctx, ownerID, OpMakeDirectory, map[string]string{"path": relative}, func() error {
		var err error
		dir, err = a.service.MakeDirectory(ctx, ownerID, relative)
		return err
	})
	return dir, err
}

// Rename moves a file within the owner's namespace.
func (a *App) Rename(ctx context.Context, ownerID int64, oldRelative, newRelative string) (*sqlc.File, error) {
	var file *sqlc.File
	params := map[string]string{"path": oldRelative, "new_path": newRelative}
	err := a.journaled(ctx, ownerID, OpRename, params, func() error {
		var err error
		file, err = a.service.Rename(ctx, ownerID, oldRelative, newRelative)
		return err
	})
	return file, err
}

// Delete removes a file or an empty directory.
func (a *App) Delete(ctx context.Context, ownerID int64, relative string) error {
	return a.journaled(ctx, ownerID, OpDelete, map[string]string{"path": relative}, func() error {
		return a.service.Delete(ctx, ownerID, relative)
	})
}

// IssueLink makes a file publicly readable under a fresh token.
func (a *App) IssueLink(ctx context.Context, ownerID int64, relative string) (*drive.PublicLink, error) {
	var link *drive.PublicLink
	err := a.journaled(ctx, ownerID, OpIssueLink, map[string]string{"path": relative}, func() error {
		var err error
		link, err = a.service.IssueLink(ctx, ownerID, relative)
		return err
	})
	return link, err
}

// RevokeLink makes a file private again.
func (a *App) RevokeLink(ctx context.Context, ownerID int64, relative string) error {
	return a.journaled(ctx, ownerID, OpRevokeLink, map[string]string{"path": relative}, func() error {
		return a.service.RevokeLink(ctx, ownerID, relative)
	})
}

func (a *App) journaled(ctx context.Context, ownerID int64, name string, params map[string]string, fn func() error) error {
	op, err := NewOperation(ownerID, name, params)
	if err != nil {
		return err
	}
	return a.journal.run(ctx, op, fn)
}

// ListFiles returns the owner's file records.
func (a *App) ListFiles(ctx context.Context, ownerID int64) ([]*sqlc.File, error) {
	return a.service.ListFiles(ctx, ownerID)
}

// ListChildren returns the immediate children of a directory.
func (a *App) ListChildren(ctx context.Context, ownerID int64, prefix string) (*drive.Listing, error) {
	return a.service.ListChildren(ctx, ownerID, prefix)
}

// FileInfo returns a file record with its stored size.
func (a *App) FileInfo(ctx context.Context, ownerID int64, relative string) (*drive.FileDetail, error) {
	return a.service.FileInfo(ctx, ownerID, relative)
}

// Download opens one of the owner's files.
func (a *App) Download(ctx context.Context, ownerID int64, relative string) (*sqlc.File, io.ReadCloser, error) {
	return a.service.Download(ctx, ownerID, relative)
}

// OpenLink opens the file behind a public token.
func (a *App) OpenLink(ctx context.Context, token string) (*sqlc.File, io.ReadCloser, error) {
	return a.service.OpenLink(ctx, token)
}

// Stats summarizes the owner's files.
func (a *App) Stats(ctx context.Context, ownerID int64) (*drive.Stats, error) {
	return a.service.Stats(ctx, ownerID)
}

// History returns the owner's journaled operations, newest first.
func (a *App) History(ctx context.Context, ownerID int64, limit int) ([]*sqlc.Operation, error) {
	return a.service.History(ctx, ownerID, limit)
}

// Check compares the metadata store with the blob store.
func (a *App) Check(ctx context.Context) (*drive.CheckReport, error) {
	return a.service.Check(ctx)
}

// Close closes the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
