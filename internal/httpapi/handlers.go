package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"hideseek/internal/server"
	"hideseek/internal/session"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type slotStatus struct {
	Index    int          `json:"index"`
	Role     session.Role `json:"role"`
	Occupied bool         `json:"occupied"`
	Frozen   bool         `json:"frozen"`
	Name     string       `json:"name,omitempty"`
}

type statusResponse struct {
	Phase      session.Phase `json:"phase"`
	RoundStart *int64        `json:"round_start"`
	Winner     *int          `json:"winner"`
	Slots      []slotStatus  `json:"slots"`
}

// Status reports the round phase and per-slot state for operators.
func Status(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := sess.Snapshot()
		resp := statusResponse{
			Phase:      snap.Phase(time.Now()),
			RoundStart: snap.RoundStart,
			Winner:     snap.Winner,
			Slots:      make([]slotStatus, len(snap.Positions)),
		}
		for i, p := range snap.Positions {
			resp.Slots[i] = slotStatus{
				Index:    i,
				Role:     session.RoleOf(i),
				Occupied: p.Occupied,
				Frozen:   sess.Frozen(i),
				Name:     p.Name,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// MetricsDump exposes the server counters as JSON.
func MetricsDump(srv *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(srv.Metrics().Snapshot())
	}
}
