package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/flemzord/warden/internal/provider"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status       string            `json:"status"` // "ok" or "degraded"
	TrackedUsers int               `json:"tracked_users"`
	Providers    []provider.Status `json:"providers"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while at least one provider is available and 503 once every
// provider is in cooldown or dead.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "ok",
		}

		if g.store != nil {
			resp.TrackedUsers = len(g.store.Snapshot())
		}

		if g.chain != nil {
			resp.Providers = g.chain.HealthReport()
			if !anyAvailable(resp.Providers) {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func anyAvailable(statuses []provider.Status) bool {
	for _, s := range statuses {
		if s.Available {
			return true
		}
	}
	return len(statuses) == 0
}
