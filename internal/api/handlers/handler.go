// Package handlers implements the HTTP endpoints of the file API on top of
// the application layer.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "cloudstore/internal/api/errors"
	"cloudstore/internal/api/middleware"
	"cloudstore/internal/app"
	"cloudstore/internal/database/sqlc"
	"cloudstore/internal/drive"
)

// Files is the application surface the handlers need.
type Files interface {
	Upload(ctx context.Context, ownerID int64, relative string, r io.Reader) (*sqlc.File, error)
	ImportArchive(ctx context.Context, ownerID int64, archive io.ReaderAt, size int64) ([]*sqlc.File, error)
	MakeDirectory(ctx context.Context, ownerID int64, relative string) (*sqlc.Directory, error)
	Rename(ctx context.Context, ownerID int64, oldRelative, newRelative string) (*sqlc.File, error)
	Delete(ctx context.Context, ownerID int64, relative string) error
	IssueLink(ctx context.Context, ownerID int64, relative string) (*drive.PublicLink, error)
	RevokeLink(ctx context.Context, ownerID int64, relative string) error
	ListFiles(ctx context.Context, ownerID int64) ([]*sqlc.File, error)
	ListChildren(ctx context.Context, ownerID int64, prefix string) (*drive.Listing, error)
	FileInfo(ctx context.Context, ownerID int64, relative string) (*drive.FileDetail, error)
	Download(ctx context.Context, ownerID int64, relative string) (*sqlc.File, io.ReadCloser, error)
	OpenLink(ctx context.Context, token string) (*sqlc.File, io.ReadCloser, error)
	Stats(ctx context.Context, ownerID int64) (*drive.Stats, error)
	History(ctx context.Context, ownerID int64, limit int) ([]*sqlc.Operation, error)
}

var _ Files = (*app.App)(nil)

// FilesHandler serves the /files endpoints.
type FilesHandler struct {
	files         Files
	maxUploadSize int64
	logger        *slog.Logger
}

// NewFilesHandler creates the handler. Request bodies of upload and import
// are capped at maxUploadSize bytes.
func NewFilesHandler(files Files, maxUploadSize int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:         files,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "files_handler")),
	}
}

// fileResponse is the JSON form of a file record. Paths are relative to the
// owner's root.
type fileResponse struct {
	Path        string    `json:"path"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Public      bool      `json:"public"`
	PublicToken string    `json:"public_token,omitempty"`
	Size        *int64    `json:"size,omitempty"`
}

func toFileResponse(f *sqlc.File) fileResponse {
	resp := fileResponse{
		Path:       relativePath(f.OwnerID, f.Path),
		UploadedAt: f.UploadedAt,
		Public:     f.PublicToken.Valid,
	}
	if f.PublicToken.Valid {
		resp.PublicToken = f.PublicToken.String
	}
	return resp
}

// relativePath strips the owner root from a stored full path.
func relativePath(ownerID int64, full string) string {
	p, err := drive.ParsePath(ownerID, full)
	if err != nil {
		return full
	}
	return p.Relative()
}

// pathParam returns the catch-all path segment of the route, unescaped.
func pathParam(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return raw
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

// owner returns the authenticated owner or writes 401.
func owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "authentication required")
		return 0, false
	}
	return id, true
}

// fail writes the response for a domain error and logs internal failures.
func (h *FilesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := apierrors.FromDomain(w, err); status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
