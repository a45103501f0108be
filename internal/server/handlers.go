package server

import (
	"encoding/json"
	"net/http"

	"github.com/haskel/variantlab/internal/experiment"
)

type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	RunID   string `json:"run_id,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse adds the derived progress fraction to the raw status.
type StatusResponse struct {
	experiment.ExecutionStatus
	Progress float64 `json:"progress"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, InfoResponse{
		Name:    "variantlab",
		Version: s.version,
		RunID:   s.source.Status().RunID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.source.Status()
	s.writeJSON(w, http.StatusOK, StatusResponse{
		ExecutionStatus: st,
		Progress:        st.Progress(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.source.Summary()))
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	data, err := s.aggregator.GetStateJSON()
	if err != nil {
		s.logger.Error("failed to encode resource state", "error", err)
		http.Error(w, "resource state unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status,
		)
	}
}
