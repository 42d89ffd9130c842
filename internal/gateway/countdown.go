package gateway

import (
	"time"

	"github.com/rs/zerolog/log"
)

// countdownDuration is the fixed delay between arming a reveal and the
// cards turning face up. The client derives its local countdown from the
// broadcast timestamp plus this same constant, so the two must agree.
const countdownDuration = 3 * time.Second

// startCountdown announces the countdown and arms the one-shot reveal
// timer for roomID. Callers guarantee the room transitioned into its
// countdown phase exactly once for this startedAt.
func (h *Hub) startCountdown(roomID string, startedAt int64) {
	h.broadcastRoom(roomID, CountdownStartedMessage{Type: TypeCountdownStarted, Timestamp: startedAt}, "")

	timer := h.clock.NewTimer(countdownDuration)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.Chan():
			h.finishCountdown(roomID, startedAt)
		case <-h.quit:
		}
	}()

	log.Debug().
		Str("room_id", roomID).
		Int64("started_at", startedAt).
		Msg("reveal countdown armed")
}

// finishCountdown runs when the timer fires. The room is re-resolved by
// id and checked against the armed timestamp rather than trusting state
// captured three seconds ago: a room destroyed or reset in the interim
// makes this a no-op.
func (h *Hub) finishCountdown(roomID string, startedAt int64) {
	r, ok := h.registry.Get(roomID)
	if !ok {
		log.Debug().Str("room_id", roomID).Msg("countdown fired for destroyed room")
		return
	}
	view, ok := r.FinishCountdown(startedAt)
	if !ok {
		log.Debug().Str("room_id", roomID).Msg("countdown fired against stale state")
		return
	}

	h.broadcastRoom(roomID, newRoomUpdate(view), "")
	log.Info().Str("room_id", roomID).Msg("cards revealed")
}
