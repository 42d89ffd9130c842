package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP requests into hub connections.
type WebSocketHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a handler bound to the hub's connection
// configuration.
func NewWebSocketHandler(h *Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  h.config.ReadBufferSize,
			WriteBufferSize: h.config.WriteBufferSize,
			CheckOrigin:     h.config.CheckOrigin,
		},
	}
}

// HandleConnection upgrades the request and starts the connection pumps.
// The connection stays in a pre-join state, accepting only join frames,
// until the client joins a room.
func (wh *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := wh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	c := newConnection(wh.hub, ws)
	wh.hub.trackConnection(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
}
