// Package ws upgrades authenticated HTTP requests to WebSocket connections
// and registers them with the notification hub.
package ws

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/good-yellow-bee/fleetwatch/internal/api/middleware"
	"github.com/good-yellow-bee/fleetwatch/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is served to a separate SPA origin; access control happens
	// at the JWT layer, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler handles the live viewer endpoint.
type Handler struct {
	hub *hub.Hub
}

// NewHandler creates a new websocket handler.
func NewHandler(h *hub.Hub) *Handler {
	return &Handler{hub: h}
}

// Serve upgrades the request and keeps the connection registered until the
// viewer disconnects or a broadcast send fails.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Printf("ws: upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	wsConn := hub.NewWSConn(conn)
	id := h.hub.Register(wsConn)
	if id == "" {
		// Hub is shutting down; Register already closed the transport.
		return
	}
	log.Printf("ws: viewer %s connected (%s)", middleware.GetUserName(r.Context()), id)

	ctx, cancel := context.WithCancel(context.Background())
	go wsConn.PingLoop(ctx)

	// Block until the peer goes away, then drop the registration. A send
	// failure during a broadcast may have unregistered it already;
	// Unregister is idempotent.
	wsConn.ReadLoop()
	cancel()
	h.hub.Unregister(id)
	log.Printf("ws: viewer connection %s closed", id)
}
