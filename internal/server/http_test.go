package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMuxRoutes(t *testing.T) {
	wsHit := false
	mux := NewMux(Deps{
		WS: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wsHit = true
		}),
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if !wsHit {
		t.Error("websocket handler not routed")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz code = %d", rec.Code)
	}
}

func TestMuxWithoutWS(t *testing.T) {
	mux := NewMux(Deps{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}
