package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable. [*sql.DB] satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves /healthz with the status of the database.
type HealthHandler struct {
	db      Pinger
	started time.Time
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Uptime: time.Since(h.started).Round(time.Second).String()}
	code := http.StatusOK
	if h.db == nil {
		resp.Database = "not configured"
	} else if err := h.db.PingContext(ctx); err != nil {
		resp.Status, resp.Database = "degraded", err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
