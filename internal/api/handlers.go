package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *HoneypotServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

// handleLiveAttacks returns the most recent decisions, oldest first.
func (s *HoneypotServer) handleLiveAttacks(w http.ResponseWriter, r *http.Request) {
	limit := defaultLiveAttacks
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLiveAttacks {
		limit = maxLiveAttacks
	}

	recent := s.engine.History().Recent(limit)
	attacks := make([]engine.Metadata, 0, len(recent))
	for _, d := range recent {
		attacks = append(attacks, d.Metadata())
	}

	writeJSON(w, http.StatusOK, attacks)
}

func (s *HoneypotServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *HoneypotServer) handleResetLearning(w http.ResponseWriter, r *http.Request) {
	forgotten := s.engine.ResetLearning()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "reset",
		"paths_forgotten": forgotten,
	})
}

func (s *HoneypotServer) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown api endpoint"})
}

// handleTrap classifies every non-API request and answers with the
// fabricated response. The call blocks for the response delay.
func (s *HoneypotServer) handleTrap(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") {
		s.handleAPINotFound(w, r)
		return
	}

	obs := detection.ObservationFromRequest(r, s.now())
	d := s.engine.Process(obs)

	for k, v := range d.Response.Headers {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" && d.Response.ContentType != "" {
		w.Header().Set("Content-Type", d.Response.ContentType)
	}
	w.WriteHeader(d.Response.StatusCode)
	if r.Method != http.MethodHead {
		w.Write([]byte(d.Response.Body))
	}
}
