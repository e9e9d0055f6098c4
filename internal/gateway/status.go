package gateway

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/flemzord/warden/internal/provider"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds  int64             `json:"uptime_seconds"`
	WebhookSources []string          `json:"webhook_sources"`
	TrackedUsers   int               `json:"tracked_users"`
	ActiveWarnings int               `json:"active_warnings"`
	Providers      []provider.Status `json:"providers"`
	AuditFailures  int64             `json:"audit_write_failures"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds:  int64(time.Since(g.startedAt) / time.Second),
			WebhookSources: g.dispatcher.Sources(),
			AuditFailures:  g.audit.WriteErrors(),
		}
		slices.Sort(resp.WebhookSources)

		if g.store != nil {
			snap := g.store.Snapshot()
			resp.TrackedUsers = len(snap)
			for _, n := range snap {
				if n > 0 {
					resp.ActiveWarnings++
				}
			}
		}

		if g.chain != nil {
			resp.Providers = g.chain.HealthReport()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
