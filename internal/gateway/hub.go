package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pointdeck/pointdeck/internal/room"
)

const (
	maxNameLength  = 20
	roomCodeLength = 6
)

// Hub routes inbound protocol frames to room mutations and fans the
// resulting views back out to every connection attached to the room.
// Connection pools are keyed by room code; the pool lock is never held
// across a send.
type Hub struct {
	registry *room.Registry
	clock    clockwork.Clock
	config   ConnectionConfig

	mu        sync.RWMutex
	conns     map[*Connection]bool
	roomConns map[string]map[*Connection]bool

	quit     chan struct{}
	quitOnce sync.Once
}

// NewHub creates a hub over the given registry.
func NewHub(registry *room.Registry, config ConnectionConfig) *Hub {
	return &Hub{
		registry:  registry,
		clock:     clockwork.NewRealClock(),
		config:    config,
		conns:     make(map[*Connection]bool),
		roomConns: make(map[string]map[*Connection]bool),
		quit:      make(chan struct{}),
	}
}

// Close releases pending countdown timers. In-flight countdowns simply
// never reveal; connections themselves are torn down by the HTTP server
// shutdown.
func (h *Hub) Close() {
	h.quitOnce.Do(func() {
		close(h.quit)
	})
}

// ConnectionCount returns the number of live connections, joined or not.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) trackConnection(c *Connection) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
}

// handleMessage is the single entry point for inbound frames. Failures
// are contained here: a bad frame answers the sender and mutates
// nothing, and a panicking handler never takes the process down.
func (h *Hub) handleMessage(c *Connection, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("connection_id", c.ID).
				Msg("message handler panicked")
			h.sendTo(c, newError("failed to process message"))
		}
	}()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.sendTo(c, newError("failed to process message"))
		return
	}

	switch env.Type {
	case TypeJoin:
		h.handleJoin(c, data)
	case TypeSelectCard:
		h.handleSelectCard(c, data)
	case TypeRevealCards:
		h.handleRevealCards(c)
	case TypeNextRound:
		h.handleNextRound(c)
	case TypeLeave:
		h.handleLeave(c)
	default:
		h.sendTo(c, newError("unknown message type"))
	}
}

func (h *Hub) handleJoin(c *Connection, data []byte) {
	if c.userID != "" {
		h.sendTo(c, newError("already in a room"))
		return
	}

	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendTo(c, newError("failed to process message"))
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		h.sendTo(c, newError("name is required"))
		return
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		h.sendTo(c, newError("name must be at most 20 characters"))
		return
	}
	// Length is the only constraint on room codes; the initiating client
	// uppercases before sending.
	if utf8.RuneCountInString(payload.RoomID) != roomCodeLength {
		h.sendTo(c, newError("invalid room id"))
		return
	}

	userID := uuid.New().String()
	view := h.registry.AddUser(payload.RoomID, &room.User{ID: userID, Name: name})

	h.mu.Lock()
	c.userID = userID
	c.roomID = payload.RoomID
	if h.roomConns[payload.RoomID] == nil {
		h.roomConns[payload.RoomID] = make(map[*Connection]bool)
	}
	h.roomConns[payload.RoomID][c] = true
	h.mu.Unlock()

	h.sendTo(c, JoinedMessage{Type: TypeJoined, UserID: userID, RoomState: view})
	h.broadcastRoom(payload.RoomID, newRoomUpdate(view), userID)

	log.Info().
		Str("user_id", userID).
		Str("room_id", payload.RoomID).
		Str("name", name).
		Msg("user joined room")
}

func (h *Hub) handleSelectCard(c *Connection, data []byte) {
	if c.userID == "" {
		h.sendTo(c, newError("join a room before selecting a card"))
		return
	}

	var payload SelectCardPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendTo(c, newError("failed to process message"))
		return
	}
	if payload.Card != nil && !room.ValidCard(*payload.Card) {
		h.sendTo(c, newError("invalid card value"))
		return
	}

	r, ok := h.registry.Get(c.roomID)
	if !ok {
		return
	}
	res, ok := r.ApplySelection(c.userID, payload.Card, h.clock.Now().UnixMilli())
	if !ok {
		return
	}

	h.broadcastRoom(c.roomID, newRoomUpdate(res.View), "")
	if res.CountdownArmed {
		h.startCountdown(c.roomID, res.CountdownStartedAt)
	}
}

func (h *Hub) handleRevealCards(c *Connection) {
	if c.userID == "" {
		return
	}
	r, ok := h.registry.Get(c.roomID)
	if !ok {
		return
	}
	startedAt, ok := r.StartCountdown(h.clock.Now().UnixMilli())
	if !ok {
		return
	}
	h.startCountdown(c.roomID, startedAt)
}

func (h *Hub) handleNextRound(c *Connection) {
	if c.userID == "" {
		return
	}
	view, ok := h.registry.ResetRound(c.roomID)
	if !ok {
		return
	}
	h.broadcastRoom(c.roomID, newRoomUpdate(view), "")
	log.Debug().Str("room_id", c.roomID).Msg("round reset")
}

func (h *Hub) handleLeave(c *Connection) {
	h.dropConnection(c)
	c.close()
}

// dropConnection removes the connection's user from its room and the
// broadcast pool, then notifies the remaining members. Safe to call for
// pre-join connections and safe to call more than once.
func (h *Hub) dropConnection(c *Connection) {
	h.mu.Lock()
	delete(h.conns, c)
	userID, roomID := c.userID, c.roomID
	c.userID, c.roomID = "", ""
	if userID != "" {
		if conns, ok := h.roomConns[roomID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.roomConns, roomID)
			}
		}
	}
	h.mu.Unlock()

	if userID == "" {
		return
	}

	view, stillThere := h.registry.RemoveUser(roomID, userID)
	if stillThere {
		h.broadcastRoom(roomID, newRoomUpdate(view), "")
	}

	log.Info().
		Str("user_id", userID).
		Str("room_id", roomID).
		Msg("user left room")
}

// sendTo queues a message for a single connection. A peer whose buffer
// is full is treated as dead and torn down, same as a close.
func (h *Hub) sendTo(c *Connection, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("send buffer full, closing connection")
		c.close()
	}
}

// broadcastRoom fans msg out to every connection in roomID except
// excludeUserID. The pool lock is released before any send; sends are
// best effort and never block, so one slow peer cannot stall the rest.
func (h *Hub) broadcastRoom(roomID string, msg interface{}, excludeUserID string) {
	h.mu.RLock()
	var targets []*Connection
	for c := range h.roomConns[roomID] {
		if excludeUserID != "" && c.userID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast")
		return
	}

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			log.Warn().
				Str("connection_id", c.ID).
				Str("room_id", roomID).
				Msg("send buffer full, closing connection")
			c.close()
		}
	}
}
