package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/noteservice"
	"github.com/starford/dagaz/internal/syncclient"
)

const maxBodyBytes = 10 << 20 // 10 MB

// Handler holds API route handlers. sync is nil when no remote endpoint is
// configured; the sync routes then answer 503.
type Handler struct {
	svc  *noteservice.Service
	sync *syncclient.Client
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, sync *syncclient.Client) *Handler {
	return &Handler{svc: svc, sync: sync}
}

// writeServiceError maps core errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrCorruptNote):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("note could not be read"))
	case errors.Is(err, apperr.ErrRemote):
		writeJSON(w, http.StatusBadGateway, errorBody("sync failed"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes?username=&category=&q=.
// With q set it filters record titles; with category set it lists one
// category; otherwise it lists every record for the user.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := q.Get("username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("username is required"))
		return
	}

	var (
		recs []models.NoteRecord
		err  error
	)
	switch {
	case q.Get("q") != "":
		recs, err = h.svc.FilterNotes(r.Context(), username, q.Get("q"))
	case q.Get("category") != "":
		recs, err = h.svc.ListNotesByCategory(r.Context(), username, q.Get("category"))
	default:
		recs, err = h.svc.ListNotes(r.Context(), username)
	}
	if err != nil {
		writeServiceError(w, "list notes", err)
		return
	}
	if recs == nil {
		recs = []models.NoteRecord{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: recs, Total: len(recs)})
}

// GetNote handles GET /api/notes/{username}/{fileName}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	fileName := chi.URLParam(r, "fileName")

	note, err := h.svc.LoadNote(r.Context(), username, fileName)
	if err != nil {
		writeServiceError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, NewNoteResponse(username, fileName, note))
}

// SaveNote handles PUT /api/notes/{username}/{fileName}. The file is
// created on first save and replaced wholesale on every later one.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	username := chi.URLParam(r, "username")
	fileName := chi.URLParam(r, "fileName")

	var req SaveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	rec, err := h.svc.SaveNote(r.Context(), username, req.Category, fileName, req.Note())
	if err != nil {
		writeServiceError(w, "save note", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteNote handles DELETE /api/notes/{username}/{fileName}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	fileName := chi.URLParam(r, "fileName")

	if err := h.svc.DeleteNote(r.Context(), username, fileName); err != nil {
		writeServiceError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories?username=.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("username is required"))
		return
	}
	cats, err := h.svc.ListCategories(r.Context(), username)
	if err != nil {
		writeServiceError(w, "list categories", err)
		return
	}
	if cats == nil {
		cats = []models.CategoryRecord{}
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: cats, Total: len(cats)})
}

// SaveCategory handles POST /api/categories.
func (h *Handler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SaveCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.SaveCategory(r.Context(), req.Username, req.Category); err != nil {
		writeServiceError(w, "save category", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DeleteCategory handles DELETE /api/categories/{username}/{category}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	category := chi.URLParam(r, "category")
	if err := h.svc.DeleteCategory(r.Context(), username, category); err != nil {
		writeServiceError(w, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/profile/{username}.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.svc.Profile(r.Context(), username)
	if err != nil {
		writeServiceError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SaveProfile handles PUT /api/profile/{username}.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	username := chi.URLParam(r, "username")

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rec := models.ProfileRecord{
		Username: username,
		Nickname: req.Nickname,
		Motto:    req.Motto,
		Avatar:   req.Avatar,
	}
	if err := h.svc.SaveProfile(r.Context(), rec); err != nil {
		writeServiceError(w, "save profile", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UploadNote handles POST /api/sync/notes/{username}/{fileName}. The
// response reflects the note-file upload only; per-resource failures are
// visible in logs, never in the response.
func (h *Handler) UploadNote(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("sync is not configured"))
		return
	}
	username := chi.URLParam(r, "username")
	fileName := chi.URLParam(r, "fileName")

	if err := h.sync.UploadNote(r.Context(), username, fileName); err != nil {
		writeServiceError(w, "upload note", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
}

// SyncProfile handles POST /api/sync/profile/{username}.
func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("sync is not configured"))
		return
	}
	username := chi.URLParam(r, "username")

	rec, err := h.sync.SyncProfile(r.Context(), username)
	if err != nil {
		writeServiceError(w, "sync profile", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
