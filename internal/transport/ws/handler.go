package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"partyroom/internal/app"
)

// Handler upgrades inbound HTTP connections to WebSockets. Unlike the
// teacher's handler, it never resolves a room from the URL: the wire
// protocol binds a socket to a room via its first JOIN intent's bearer
// token (see spec.md §2's dataflow and Client.handleJoin), so every
// socket starts unbound regardless of query string.
type Handler struct {
	registry *app.RoomRegistry
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a WebSocket handler over registry.
func NewHandler(registry *app.RoomRegistry, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and starts its pumps. The client
// remains unbound until its first JOIN intent arrives.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, h.registry, h.logger)
	h.logger.Debug("websocket connected")
	client.Run()
}
