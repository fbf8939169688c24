package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAmbiguous):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// VerifyKey handles GET /api/auth/verify. It reports who the presented
// key belongs to, so a bridge running in api mode can bind its session
// tenant against this server.
func (h *Handler) VerifyKey(w http.ResponseWriter, r *http.Request) {
	c := authContext(r)
	scopes := c.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	writeJSON(w, http.StatusOK, VerifyKeyResponse{
		TenantID: c.TenantID,
		KeyID:    c.KeyID,
		Scopes:   scopes,
	})
}

// SearchNotes handles GET /api/notes. Query parameters: q, notebook,
// domain, start_date, end_date (YYYY-MM-DD or RFC 3339), limit, offset.
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	params := noteservice.SearchParams{
		Query:    q.Get("q"),
		Notebook: q.Get("notebook"),
		Domain:   q.Get("domain"),
		Limit:    limit,
		Offset:   offset,
	}
	var err error
	if params.StartDate, err = parseDateParam(q.Get("start_date"), false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if params.EndDate, err = parseDateParam(q.Get("end_date"), true); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	notes, total, err := h.svc.SearchNotes(r.Context(), tenant(r), params)
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []models.Note{} // never encode null
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetNote(r.Context(), tenant(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse(n))
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	n, err := h.svc.CreateNote(r.Context(), tenant(r), noteservice.NoteInput{
		Content:   req.Content,
		Title:     req.Title,
		Notebook:  req.Notebook,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, noteResponse(n))
}

// UpdateNote handles PUT /api/notes/{id}. If-Match carries the expected
// content checksum.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	n, err := h.svc.UpdateNote(r.Context(), tenant(r), chi.URLParam(r, "id"), noteservice.NoteChanges{
		Content:   req.Content,
		Title:     req.Title,
		SourceURL: req.SourceURL,
		Notebook:  req.Notebook,
		IfMatch:   r.Header.Get("If-Match"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse(n))
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), tenant(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotebooks handles GET /api/notebooks.
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	notebooks, err := h.svc.ListNotebooks(r.Context(), tenant(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	if notebooks == nil {
		notebooks = []models.Notebook{}
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: notebooks})
}

// GetNotebook handles GET /api/notebooks/{ref}. The ref may be an id, a
// name, or a fragment; it must resolve to exactly one notebook.
func (h *Handler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	nb, err := h.svc.GetNotebook(r.Context(), tenant(r), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// CreateNotebook handles POST /api/notebooks.
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req CreateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}

	nb, err := h.svc.CreateNotebook(r.Context(), tenant(r), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// UpdateNotebook handles PUT /api/notebooks/{ref}.
func (h *Handler) UpdateNotebook(w http.ResponseWriter, r *http.Request) {
	var req UpdateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	nb, err := h.svc.UpdateNotebook(r.Context(), tenant(r), chi.URLParam(r, "ref"), noteservice.NotebookChanges{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// DeleteNotebook handles DELETE /api/notebooks/{ref}.
func (h *Handler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNotebook(r.Context(), tenant(r), chi.URLParam(r, "ref")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tenant returns the authenticated tenant id for the request.
func tenant(r *http.Request) string {
	if c := authContext(r); c != nil {
		return c.TenantID
	}
	return ""
}

func parseDateParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, errors.New("invalid date: use YYYY-MM-DD or RFC 3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
