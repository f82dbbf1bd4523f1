package main

import (
	"net/http"
)

// GET /api/stats/daily
func (s *server) handleStatsDaily(w http.ResponseWriter, r *http.Request) {
	top, ok := s.stats.TopToday()
	if !ok {
		// no calculation recorded yet today
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, top)
}

// GET /api/stats/user?username=...
func (s *server) handleStatsUser(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing username")
		return
	}
	writeJSON(w, s.stats.User(username))
}
