package web

import (
	"net/http"
)

// handleAnalysis runs the financial analysis over the user's history.
// Returns 503 when no API key was configured at startup.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	user := userID(r)
	transactions, err := s.service.ListTransactions(r.Context(), user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	categories, err := s.service.ListCategories(r.Context(), user)
	if err != nil {
		respondError(w, r, err)
		return
	}

	text, err := s.advisor.Analyze(r.Context(), transactions, categories)
	if err != nil {
		writeError(w, http.StatusBadGateway, "analysis failed, try again later")
		return
	}

	writeJSON(w, map[string]string{"analysis": text})
}
