package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pointdeck/pointdeck/internal/room"
)

// Config holds configuration for the gateway service.
type Config struct {
	Connection ConnectionConfig
}

// Service ties the hub, the upgrade handler and the read-only REST
// surface together.
type Service struct {
	hub       *Hub
	wsHandler *WebSocketHandler
	registry  *room.Registry
}

// NewService creates the gateway service over the given registry.
func NewService(config Config, registry *room.Registry) *Service {
	hub := NewHub(registry, config.Connection)
	return &Service{
		hub:       hub,
		wsHandler: NewWebSocketHandler(hub),
		registry:  registry,
	}
}

// Hub exposes the underlying hub.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start blocks until ctx is cancelled, then releases hub resources.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("gateway service started")
	<-ctx.Done()
	s.hub.Close()
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and REST routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.wsHandler.HandleConnection)
	mux.HandleFunc("GET /ws/stats", s.handleStats)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleRoomState)
	log.Info().Msg("gateway routes registered")
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"connections": s.hub.ConnectionCount(),
		"rooms":       s.registry.RoomCount(),
	})
}

// handleRoomState serves the same projection the hub broadcasts, for
// polling clients and debugging. Unrevealed selections stay hidden here
// too.
func (s *Service) handleRoomState(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rm.View())
}
