package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

func resourceKind(name string) (storage.Kind, bool) {
	switch name {
	case "image":
		return storage.KindImage, true
	case "audio":
		return storage.KindAudio, true
	case "avatar":
		return storage.KindAvatar, true
	default:
		return "", false
	}
}

// UploadResource handles POST /api/resources/{kind}/{username}
// (multipart/form-data, field "file"). The stored name is the uploaded
// filename; the note block that references it carries the same name.
func (h *Handler) UploadResource(w http.ResponseWriter, r *http.Request) {
	kind, ok := resourceKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown resource kind"))
		return
	}
	username := chi.URLParam(r, "username")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	if err := h.svc.SaveResource(r.Context(), kind, username, header.Filename, data); err != nil {
		writeServiceError(w, "upload resource", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"filename": header.Filename,
		"size":     len(data),
		"url":      "/api/resources/" + string(kind) + "/" + username + "/" + header.Filename,
	})
}

// ServeResource handles GET /api/resources/{kind}/{username}/{name}.
// The content type is sniffed from the stored bytes.
func (h *Handler) ServeResource(w http.ResponseWriter, r *http.Request) {
	kind, ok := resourceKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown resource kind"))
		return
	}
	username := chi.URLParam(r, "username")
	name := chi.URLParam(r, "name")

	data, err := h.svc.LoadResource(r.Context(), kind, username, name)
	if err != nil {
		writeServiceError(w, "serve resource", err)
		return
	}

	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
