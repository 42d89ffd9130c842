package room

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns the mapping from room code to live room. Rooms are
// created lazily on the first join and destroyed the moment their member
// set becomes empty. The registry lock guards only the map itself;
// mutations to a room's contents take that room's lock, so traffic in
// one room never blocks another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room for code, creating an empty one if needed.
func (reg *Registry) GetOrCreate(code string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.getOrCreateLocked(code)
}

func (reg *Registry) getOrCreateLocked(code string) *Room {
	r, ok := reg.rooms[code]
	if !ok {
		r = newRoom(code)
		reg.rooms[code] = r
		log.Debug().Str("room_id", code).Msg("room created")
	}
	return r
}

// Get looks up a room without creating it.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// AddUser inserts u into the room for code, creating the room when
// absent, and returns the updated view. Insertion is idempotent by user
// id. The room lock is acquired before the registry lock is released so
// a concurrent removal cannot orphan the insert.
func (reg *Registry) AddUser(code string, u *User) RoomView {
	reg.mu.Lock()
	r := reg.getOrCreateLocked(code)
	r.mu.Lock()
	reg.mu.Unlock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		u.seq = r.nextSeq
		r.nextSeq++
		r.users[u.ID] = u
	}
	return r.viewLocked()
}

// RemoveUser removes userID from its room. The room is destroyed the
// instant its member set becomes empty. Returns the updated view and
// whether the room still exists.
func (reg *Registry) RemoveUser(code, userID string) (RoomView, bool) {
	reg.mu.Lock()
	r, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return RoomView{}, false
	}
	r.mu.Lock()
	delete(r.users, userID)
	if len(r.users) == 0 {
		delete(reg.rooms, code)
		r.mu.Unlock()
		reg.mu.Unlock()
		log.Debug().Str("room_id", code).Msg("room destroyed")
		return RoomView{}, false
	}
	view := r.viewLocked()
	r.mu.Unlock()
	reg.mu.Unlock()
	return view, true
}

// ResetRound returns the room for code to an unrevealed state with every
// member's selection and the countdown cleared. No-op when the room is
// absent.
func (reg *Registry) ResetRound(code string) (RoomView, bool) {
	r, ok := reg.Get(code)
	if !ok {
		return RoomView{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed = false
	r.countdownStartedAt = 0
	for _, u := range r.users {
		u.SelectedCard = nil
	}
	return r.viewLocked(), true
}
