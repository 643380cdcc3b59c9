package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	apierrors "cloudstore/internal/api/errors"
	"cloudstore/internal/database/sqlc"
	"cloudstore/internal/drive"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// Upload handles POST /files/upload. Form fields: file (required) and path
// (optional, defaults to the uploaded file name).
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "field 'file' is required")
		return
	}
	defer file.Close()

	relative := r.FormValue("path")
	if relative == "" {
		relative = header.Filename
	}

	created, err := h.files.Upload(r.Context(), ownerID, relative, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFileResponse(created))
}

// Import handles POST /files/import with a ZIP archive in the form field
// archive. It answers with the files that were registered.
func (h *FilesHandler) Import(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	archive, header, err := r.FormFile("archive")
	if err != nil {
		apierrors.ValidationError(w, "field 'archive' is required")
		return
	}
	defer archive.Close()

	imported, err := h.files.ImportArchive(r.Context(), ownerID, archive, header.Size)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]fileResponse, 0, len(imported))
	for _, f := range imported {
		resp = append(resp, toFileResponse(f))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// parseMultipart caps the body and parses the form. It writes the error
// response and returns false on failure.
func (h *FilesHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if h.maxUploadSize > 0 {
		if r.ContentLength > h.maxUploadSize {
			apierrors.TooLarge(w, fmt.Sprintf("request body exceeds %d bytes", h.maxUploadSize))
			return false
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.TooLarge(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		apierrors.ValidationError(w, fmt.Sprintf("invalid multipart body: %s", err))
		return false
	}
	return true
}

// List handles GET /files/ and returns the relative paths of all the
// owner's files.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	files, err := h.files.ListFiles(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, relativePath(ownerID, f.Path))
	}
	writeJSON(w, http.StatusOK, paths)
}

type listingResponse struct {
	Path        string   `json:"path"`
	Directories []string `json:"directories"`
	Files       []string `json:"files"`
}

// Children handles GET /files/list?path=<prefix>.
func (h *FilesHandler) Children(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	prefix := r.URL.Query().Get("path")
	listing, err := h.files.ListChildren(r.Context(), ownerID, prefix)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := listingResponse{Path: prefix, Directories: listing.Directories, Files: listing.Files}
	if resp.Directories == nil {
		resp.Directories = []string{}
	}
	if resp.Files == nil {
		resp.Files = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type pathRequest struct {
	Path string `json:"path"`
}

type directoryResponse struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// MakeDirectory handles POST /files/directories with {"path": ...}.
func (h *FilesHandler) MakeDirectory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	dir, err := h.files.MakeDirectory(r.Context(), ownerID, req.Path)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, directoryResponse{
		Path:      relativePath(ownerID, dir.Path),
		CreatedAt: dir.CreatedAt,
	})
}

type statsResponse struct {
	TotalFiles int   `json:"total_files"`
	TotalSize  int64 `json:"total_size"`
}

// Stats handles GET /files/stats.
func (h *FilesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	stats, err := h.files.Stats(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{TotalFiles: stats.TotalFiles, TotalSize: stats.TotalSize})
}

type operationResponse struct {
	ID         int64           `json:"id"`
	Operation  string          `json:"operation"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func toOperationResponse(op *sqlc.Operation) operationResponse {
	resp := operationResponse{
		ID:        op.ID,
		Operation: op.Operation,
		Status:    op.Status,
		StartedAt: op.StartedAt,
	}
	if op.Parameters != "" && json.Valid([]byte(op.Parameters)) {
		resp.Parameters = json.RawMessage(op.Parameters)
	}
	if op.FinishedAt.Valid {
		finished := op.FinishedAt.Time
		resp.FinishedAt = &finished
	}
	return resp
}

// History handles GET /files/history?limit=N.
func (h *FilesHandler) History(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			apierrors.ValidationError(w, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	ops, err := h.files.History(r.Context(), ownerID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]operationResponse, 0, len(ops))
	for _, op := range ops {
		resp = append(resp, toOperationResponse(op))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Info handles GET /files/info/*.
func (h *FilesHandler) Info(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	detail, err := h.files.FileInfo(r.Context(), ownerID, pathParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := toFileResponse(detail.File)
	resp.Size = &detail.Size
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /files/download/*.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	file, rc, err := h.files.Download(r.Context(), ownerID, pathParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()
	h.stream(w, file, rc)
}

// stream copies file content to the response as an attachment.
func (h *FilesHandler) stream(w http.ResponseWriter, file *sqlc.File, rc io.Reader) {
	w.Header().Set("Content-Type", "application/octet-stream")
	name := "download"
	if p, err := drive.ParsePath(file.OwnerID, file.Path); err == nil {
		name = p.Base()
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": name,
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("streaming file interrupted",
			slog.String("path", file.Path),
			slog.String("error", err.Error()),
		)
	}
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

// Rename handles PUT /files/* with {"new_name": ...}. The new name is a
// path relative to the owner's root.
func (h *FilesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.NewName == "" {
		apierrors.ValidationError(w, "new_name is required")
		return
	}

	renamed, err := h.files.Rename(r.Context(), ownerID, pathParam(r), req.NewName)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(renamed))
}

// Delete handles DELETE /files/*.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.files.Delete(r.Context(), ownerID, pathParam(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
