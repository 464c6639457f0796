package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/noteservice"
	"github.com/starford/dagaz/internal/syncclient"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sync may be nil; the sync routes then answer 503.
// eventsHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, sync *syncclient.Client, authEnabled bool, token string, eventsHandler http.Handler) chi.Router {
	h := NewHandler(svc, sync)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{username}/{fileName}", h.GetNote)
	r.Put("/notes/{username}/{fileName}", h.SaveNote)
	r.Delete("/notes/{username}/{fileName}", h.DeleteNote)

	// Categories.
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.SaveCategory)
	r.Delete("/categories/{username}/{category}", h.DeleteCategory)

	// Profiles.
	r.Get("/profile/{username}", h.GetProfile)
	r.Put("/profile/{username}", h.SaveProfile)

	// Resources.
	r.Post("/resources/{kind}/{username}", h.UploadResource)
	r.Get("/resources/{kind}/{username}/{name}", h.ServeResource)

	// Sync.
	r.Post("/sync/notes/{username}/{fileName}", h.UploadNote)
	r.Post("/sync/profile/{username}", h.SyncProfile)

	// SSE endpoint (protected by same auth middleware).
	if eventsHandler != nil {
		r.Get("/events", eventsHandler.ServeHTTP)
	}

	return r
}
