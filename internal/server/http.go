// Package server wires the lobby's HTTP surface: the websocket endpoint and
// the health check.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	healthhandler "thronehall/internal/health/handler"
)

// Deps holds the handlers the HTTP server exposes. Nil deps degrade: a nil
// health pinger skips the probe, a nil websocket handler serves 404.
type Deps struct {
	// WS is the websocket session endpoint.
	WS http.Handler
	// HealthPinger is used by /healthz for readiness (e.g. *sql.DB).
	HealthPinger healthhandler.Pinger
}

// NewMux builds the route table.
func NewMux(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()
	if deps.WS != nil {
		mux.Handle("GET /ws", deps.WS)
	}
	mux.Handle("GET /healthz", healthhandler.NewHandler(deps.HealthPinger))
	return mux
}

// Run serves the mux until ctx is canceled, then drains connections for up to
// the given grace period.
func Run(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("server: shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
