package gateway

import (
	"github.com/pointdeck/pointdeck/internal/room"
)

// MessageType discriminates protocol frames in both directions.
type MessageType string

// Client to server.
const (
	TypeJoin        MessageType = "join"
	TypeSelectCard  MessageType = "selectCard"
	TypeRevealCards MessageType = "revealCards"
	TypeNextRound   MessageType = "nextRound"
	TypeLeave       MessageType = "leave"
)

// Server to client.
const (
	TypeJoined           MessageType = "joined"
	TypeRoomUpdate       MessageType = "roomUpdate"
	TypeCountdownStarted MessageType = "countdownStarted"
	TypeError            MessageType = "error"
)

// envelope carries just the discriminator; the full frame is decoded in
// a second pass once the type is known.
type envelope struct {
	Type MessageType `json:"type"`
}

// JoinPayload is the body of a join frame.
type JoinPayload struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
}

// SelectCardPayload carries the picked card; a JSON null clears the
// sender's selection.
type SelectCardPayload struct {
	Card *room.CardValue `json:"card"`
}

// JoinedMessage is the direct reply to the connection whose join
// succeeded. Everyone else in the room gets a RoomUpdateMessage.
type JoinedMessage struct {
	Type      MessageType   `json:"type"`
	UserID    string        `json:"userId"`
	RoomState room.RoomView `json:"roomState"`
}

// RoomUpdateMessage carries the room's current projection.
type RoomUpdateMessage struct {
	Type      MessageType   `json:"type"`
	RoomState room.RoomView `json:"roomState"`
}

// CountdownStartedMessage announces the epoch ms at which the reveal
// countdown was armed. The client adds the shared countdown constant to
// render its local timer.
type CountdownStartedMessage struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorMessage is sent to the offending connection only, never broadcast.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func newRoomUpdate(view room.RoomView) RoomUpdateMessage {
	return RoomUpdateMessage{Type: TypeRoomUpdate, RoomState: view}
}

func newError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}
