package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type linkResponse struct {
	Path        string `json:"path"`
	PublicToken string `json:"public_token"`
	PublicURL   string `json:"public_url"`
}

// IssueLink handles POST /files/public-link/*.
func (h *FilesHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	link, err := h.files.IssueLink(r.Context(), ownerID, pathParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{
		Path:        relativePath(ownerID, link.Path),
		PublicToken: link.Token,
		PublicURL:   link.URL,
	})
}

// RevokeLink handles DELETE /files/public-link/*.
func (h *FilesHandler) RevokeLink(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.files.RevokeLink(r.Context(), ownerID, pathParam(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Public handles GET /files/public/{token}. It needs no authentication.
func (h *FilesHandler) Public(w http.ResponseWriter, r *http.Request) {
	file, rc, err := h.files.OpenLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()
	h.stream(w, file, rc)
}
