package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/corkboard/backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is not checked here; browsers authenticate over the socket
	// with the first frame, and non-browser clients have no origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades HTTP requests into realtime connections.
// Authentication happens on the socket: the first frame must be auth.
type WebSocketHandler struct {
	hub *realtime.Hub
}

// NewWebSocketHandler creates a WebSocketHandler for the given hub.
func NewWebSocketHandler(hub *realtime.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Serve upgrades the connection and hands it to the hub.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	h.hub.Register(conn)
}
