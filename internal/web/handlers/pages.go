package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/models"
	"github.com/support1122/flashfire-dashboard/internal/web"
)

// PagesHandler handles HTML page requests
type PagesHandler struct {
	templates *web.TemplateEngine
	boards    web.BoardLookup
}

// NewPagesHandler creates a new pages handler
func NewPagesHandler(templates *web.TemplateEngine, boards web.BoardLookup) *PagesHandler {
	return &PagesHandler{
		templates: templates,
		boards:    boards,
	}
}

func (h *PagesHandler) lookup(w http.ResponseWriter, r *http.Request) (*board.Board, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return nil, false
	}
	b, ok := h.boards.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		if err := h.templates.Render(w, "missing", map[string]interface{}{"Title": "Not found"}); err != nil {
			http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return b, true
}

// Page renders the whole board
func (h *PagesHandler) Page(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}

	data := map[string]interface{}{
		"Title": "Board",
		"View":  b.View(),
	}

	if r.Header.Get("HX-Request") == "true" {
		if err := h.templates.RenderContent(w, "board", data); err != nil {
			http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := h.templates.Render(w, "board", data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Column renders one column, switching its page when ?page= is present
func (h *PagesHandler) Column(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	status := models.Status(chi.URLParam(r, "status"))

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid page", http.StatusBadRequest)
			return
		}
		if err := b.SetPage(status, page); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	col, err := b.Column(status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := map[string]interface{}{"Column": col, "BoardID": b.ID()}
	if err := h.templates.RenderPartial(w, "column", data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}
