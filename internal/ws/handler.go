package ws

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"thronehall/internal/lobby"
	"thronehall/internal/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The lobby is origin-agnostic; access control is the bearer token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades HTTP requests to lobby sessions.
type Handler struct {
	hub      *Hub
	verifier *security.TokenVerifier
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(hub *Hub, verifier *security.TokenVerifier) *Handler {
	return &Handler{hub: hub, verifier: verifier}
}

// ServeHTTP performs the handshake. A valid bearer token (query param
// "token" or Authorization header) authenticates the session; connections
// without one are anonymous observers. A present-but-invalid token is
// rejected outright.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var identity *security.Identity
	if token := bearerToken(r); token != "" {
		id, err := h.verifier.VerifyAccess(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		identity = &id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	// The request context dies when ServeHTTP returns; the session needs its
	// own lifetime, cancelled by the read pump on disconnect.
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		id:     lobby.ConnID(uuid.NewString()),
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		authed: identity != nil,
		cancel: cancel,
	}
	h.hub.register(client)

	go client.writePump()

	if err := h.hub.sessions.Connect(ctx, client.id, identity); err != nil {
		log.Printf("ws: connect %s: %v", client.id, err)
		h.hub.unregister(client)
		client.close()
		conn.Close()
		cancel()
		return
	}

	go client.readPump(ctx)
}

// bearerToken extracts the access token from the query string or the
// Authorization header.
func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
