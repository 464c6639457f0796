package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/starford/dagaz/internal/index"
)

// EventsHandler streams index changes over SSE.
type EventsHandler struct {
	db *index.DB
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(db *index.DB) *EventsHandler {
	return &EventsHandler{db: db}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events?username=).
// An empty username subscribes to changes for every user.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.db.Subscribe(r.URL.Query().Get("username"))
	defer sub.Cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Kind, payload)
			flusher.Flush()
		}
	}
}
