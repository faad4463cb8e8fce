package contracts

import (
	"context"
	"encoding/json"
)

// Gateway is the authoritative room registry. It owns the only shared
// mutable state on the server: which sessions are joined to which rooms.
type Gateway interface {
	// Register attaches a freshly handshaken session and auto-joins it
	// to its user room.
	Register(ctx context.Context, c Client)
	// Unregister removes the session from every room it belongs to and
	// notifies remaining members. Called on transport close.
	Unregister(ctx context.Context, c Client)
	// Join adds the session to room, evicting it from any other room in
	// the same namespace. Idempotent.
	Join(ctx context.Context, c Client, room string)
	// Leave removes membership if present; never an error.
	Leave(ctx context.Context, c Client, room string)
	// Broadcast fans an event out to every session in room, the
	// originator included. Best-effort per recipient.
	Broadcast(ctx context.Context, room, event string, payload json.RawMessage)
	// BroadcastToUser fans an event out to every session of one user.
	BroadcastToUser(ctx context.Context, userID, event string, payload json.RawMessage)
}

// Client is the minimal surface the gateway needs to talk to one
// websocket connection.
type Client interface {
	SessionID() string
	UserID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
