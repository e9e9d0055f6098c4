package gateway

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/flemzord/warden/internal/security"
	"github.com/go-chi/chi/v5"
)

// ViolationRecord is one user's escalation counter.
type ViolationRecord struct {
	UserID int64 `json:"user_id"`
	Count  int   `json:"count"`
}

// ViolationList is the JSON response for GET /api/violations.
type ViolationList struct {
	Users []ViolationRecord `json:"users"`
}

// handleListViolations returns every tracked user, highest count first.
// ?active=true drops users whose counter is back at zero.
func (g *Gateway) handleListViolations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			writeError(w, http.StatusServiceUnavailable, "escalation store not available")
			return
		}
		activeOnly := r.URL.Query().Get("active") == "true"

		resp := ViolationList{Users: []ViolationRecord{}}
		for id, n := range g.store.Snapshot() {
			if activeOnly && n == 0 {
				continue
			}
			resp.Users = append(resp.Users, ViolationRecord{UserID: id, Count: n})
		}
		slices.SortFunc(resp.Users, func(a, b ViolationRecord) int {
			if a.Count != b.Count {
				return b.Count - a.Count
			}
			switch {
			case a.UserID < b.UserID:
				return -1
			case a.UserID > b.UserID:
				return 1
			}
			return 0
		})

		writeJSON(w, http.StatusOK, resp)
	}
}

func (g *Gateway) handleGetViolations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			writeError(w, http.StatusServiceUnavailable, "escalation store not available")
			return
		}
		userID, ok := userParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, ViolationRecord{UserID: userID, Count: g.store.Get(userID)})
	}
}

// handleResetViolations is the HTTP twin of /resetviolations: it zeroes
// the counter, reports the reset to the store's observers and records the
// caller in the audit log.
func (g *Gateway) handleResetViolations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			writeError(w, http.StatusServiceUnavailable, "escalation store not available")
			return
		}
		userID, ok := userParam(w, r)
		if !ok {
			return
		}

		previous := g.store.Get(userID)
		// No chat and no Telegram invoker: observers see chat 0, by 0.
		g.store.ResetBy(r.Context(), 0, userID, 0)

		g.logger.Info("violations reset via admin API", "user_id", userID, "previous", previous)
		g.audit.Log(security.AuditEvent{
			Type:   security.EventViolationReset,
			Actor:  "admin-api:" + r.RemoteAddr,
			UserID: userID,
			Detail: "reset from " + strconv.Itoa(previous),
		})

		writeJSON(w, http.StatusOK, ViolationRecord{UserID: userID, Count: g.store.Get(userID)})
	}
}

func userParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "user")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user id must be an integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
