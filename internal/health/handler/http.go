// Package handler serves readiness and liveness checks for Kubernetes, load
// balancers, and CI.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is anything with a PingContext readiness probe (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler answers GET /healthz. Nil probes are skipped so a degraded
// deployment can still report liveness.
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler. db may be nil.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHTTP reports 200 when every configured probe passes, 503 otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := response{Status: "ok", Checks: map[string]string{"process": "ok"}}
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Checks["database"] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
