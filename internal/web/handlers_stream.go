package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/financas/server/internal/store"
)

// streamable lists the collections exposed as live feeds.
var streamable = map[string]bool{
	store.ColTransactions:      true,
	store.ColCategories:        true,
	store.ColAccounts:          true,
	store.ColForecastedIncomes: true,
}

// handleStream pushes collection snapshots via Server-Sent Events. Each
// event carries the full current document set, so clients replace local
// state rather than patching it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !streamable[collection] {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, cancel := s.service.Store().Subscribe(r.Context(), userID(r), collection)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for {
		select {
		case docs, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(docs)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
