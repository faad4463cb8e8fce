package domain

import (
	"encoding/json"
	"time"
)

// Frame types exchanged over the websocket.
const (
	TypeHandshake = "handshake"
	TypeEvent     = "event"
	TypeAck       = "ack"
	TypeError     = "error"
)

// Client → server control events.
const (
	EventJoinRoom  = "join-room"
	EventLeaveRoom = "leave-room"
)

// Server → client events.
const (
	EventListeUpdated = "liste-updated"
	EventListeCreated = "liste-created"
	EventListeDeleted = "liste-deleted"
	EventMemberLeft   = "member-left"
	EventRoomMembers  = "room-members"
)

// Frame is the single wire envelope. Type discriminates which fields are
// meaningful; unused fields are omitted on the wire.
type Frame struct {
	Type      string          `json:"type"`
	Event     string          `json:"event,omitempty"`
	Room      string          `json:"room,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	OK        bool            `json:"ok,omitempty"`
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// HandshakeFrame is sent once, immediately after a successful upgrade.
type HandshakeFrame struct {
	Type      string `json:"type"` // "handshake"
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

func NewHandshakeFrame(sessionID, userID string) HandshakeFrame {
	return HandshakeFrame{Type: TypeHandshake, SessionID: sessionID, UserID: userID}
}

// NewEventFrame wraps an already-marshaled payload in an event envelope.
func NewEventFrame(event, room string, payload json.RawMessage) Frame {
	return Frame{Type: TypeEvent, Event: event, Room: room, Payload: payload}
}

// NewAckFrame acknowledges a join/leave request by correlation id.
func NewAckFrame(requestID, room string) Frame {
	return Frame{Type: TypeAck, RequestID: requestID, Room: room, OK: true}
}

func NewAckError(requestID, code, message string) Frame {
	return Frame{Type: TypeAck, RequestID: requestID, Code: code, Message: message}
}

// ListeDeletedPayload is broadcast to the owner's user room when a list is
// torn down; only the id survives, the document is gone.
type ListeDeletedPayload struct {
	ID string `json:"id"`
}

// MemberLeftPayload is informational only; membership correctness never
// depends on clients seeing it.
type MemberLeftPayload struct {
	SessionID string    `json:"session_id"`
	Room      string    `json:"room"`
	LeftAt    time.Time `json:"left_at"`
}

// RoomMembersPayload is pushed after a join with the sessions currently
// viewing the room.
type RoomMembersPayload struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
}
