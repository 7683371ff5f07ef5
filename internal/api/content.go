package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// ContentHandler serves the bundled content store endpoints, used to seed and
// inspect the items schedules act on.
type ContentHandler struct {
	repo core.ContentRepository
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(repo core.ContentRepository) *ContentHandler {
	return &ContentHandler{repo: repo}
}

// Put handles PUT /v1/content/{type}/{id}.
func (h *ContentHandler) Put(w http.ResponseWriter, r *http.Request) {
	var item core.ContentItem
	if !decodeJSON(w, r, &item) {
		return
	}
	item.Type = chi.URLParam(r, "type")
	item.ID = chi.URLParam(r, "id")

	if err := h.repo.PutContent(r.Context(), &item); err != nil {
		WriteSchedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"content": item})
}

// Get handles GET /v1/content/{type}/{id}.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.repo.GetContent(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		WriteSchedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"content": item})
}
