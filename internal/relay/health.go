package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger checks the shared document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status   string `json:"status"`
	Redis    string `json:"redis,omitempty"`
	Sessions int64  `json:"sessions"`
	Error    string `json:"error,omitempty"`
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if the store is accessible, 503 Service Unavailable otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:   "healthy",
		Sessions: s.sessions.Load(),
	}

	if s.health == nil {
		writeHealth(w, http.StatusOK, response)
		return
	}

	// Check Redis connectivity with timeout
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		writeHealth(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Redis = "connected"
	writeHealth(w, http.StatusOK, response)
}

func writeHealth(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
