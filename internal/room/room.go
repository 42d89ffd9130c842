package room

import (
	"sync"
)

// CardValue is a single value from the fixed estimation deck.
type CardValue int

// Deck is the full set of selectable card values.
var Deck = []CardValue{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}

// ValidCard reports whether v is one of the deck values.
func ValidCard(v CardValue) bool {
	for _, c := range Deck {
		if c == v {
			return true
		}
	}
	return false
}

// User is a participant in a room. A nil SelectedCard means no selection.
type User struct {
	ID           string
	Name         string
	SelectedCard *CardValue

	seq int // join order, assigned by the room
}

// Room is the authoritative state for one group of participants sharing
// an estimation round. All exported methods serialize access internally,
// so operations on different rooms never block each other.
type Room struct {
	id string

	mu                 sync.Mutex
	users              map[string]*User
	revealed           bool
	countdownStartedAt int64 // epoch ms, 0 when no countdown is in flight
	nextSeq            int
}

func newRoom(id string) *Room {
	return &Room{
		id:    id,
		users: make(map[string]*User),
	}
}

// ID returns the six character room code.
func (r *Room) ID() string { return r.id }

// MemberCount returns the number of users currently in the room.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Revealed reports whether the current round has been revealed.
func (r *Room) Revealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revealed
}

// CountdownStartedAt returns the epoch ms at which the pending countdown
// was armed, or 0 when none is in flight.
func (r *Room) CountdownStartedAt() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countdownStartedAt
}

// AllSelected reports whether the room has at least one member and every
// member has picked a card. An empty room never reports all selected.
func (r *Room) AllSelected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allSelectedLocked()
}

func (r *Room) allSelectedLocked() bool {
	if len(r.users) == 0 {
		return false
	}
	for _, u := range r.users {
		if u.SelectedCard == nil {
			return false
		}
	}
	return true
}

// Average returns the arithmetic mean of the cards selected so far. The
// second return is false when no member has selected. The result is a
// pure function of the selections and does not depend on the revealed
// flag; callers decide whether to expose it.
func (r *Room) Average() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.averageLocked()
}

func (r *Room) averageLocked() (float64, bool) {
	sum := 0
	count := 0
	for _, u := range r.users {
		if u.SelectedCard != nil {
			sum += int(*u.SelectedCard)
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return float64(sum) / float64(count), true
}

// SelectionResult reports what a selection changed.
type SelectionResult struct {
	View               RoomView
	CountdownArmed     bool
	CountdownStartedAt int64
}

// ApplySelection records card for userID, a nil card clearing any prior
// selection, and reports whether the mutation flipped the room into its
// countdown phase: the room must be open, have more than one member, and
// have every member selected. A room already counting down never arms a
// second countdown, no matter how selections keep changing. Returns
// false when userID is not a member.
func (r *Room) ApplySelection(userID string, card *CardValue, nowMS int64) (SelectionResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return SelectionResult{}, false
	}
	u.SelectedCard = card

	var res SelectionResult
	if !r.revealed && r.countdownStartedAt == 0 && len(r.users) > 1 && r.allSelectedLocked() {
		r.countdownStartedAt = nowMS
		res.CountdownArmed = true
		res.CountdownStartedAt = nowMS
	}
	res.View = r.viewLocked()
	return res, true
}

// StartCountdown arms the reveal countdown manually. It only succeeds
// while the room is open; rooms already counting down or revealed are
// left untouched.
func (r *Room) StartCountdown(nowMS int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.revealed || r.countdownStartedAt != 0 {
		return 0, false
	}
	r.countdownStartedAt = nowMS
	return nowMS, true
}

// FinishCountdown flips the room to revealed, but only when the pending
// countdown still matches startedAt. A room reset or re-armed in the
// interim makes the call a no-op.
func (r *Room) FinishCountdown(startedAt int64) (RoomView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if startedAt == 0 || r.revealed || r.countdownStartedAt != startedAt {
		return RoomView{}, false
	}
	r.revealed = true
	return r.viewLocked(), true
}
