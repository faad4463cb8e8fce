package contracts

import (
	"context"
	"time"
)

// PresenceStore tracks which sessions are currently viewing a room.
// Purely informational; room membership correctness lives in the Gateway.
type PresenceStore interface {
	// TouchMember refreshes a session inside the room's ZSET with a TTL.
	TouchMember(ctx context.Context, room, sessionID string, ttl time.Duration) error
	// Members returns sessions seen within the activity window.
	Members(ctx context.Context, room string) ([]string, error)
	// RemoveMember drops one session from the room set.
	RemoveMember(ctx context.Context, room, sessionID string) error
	// ClearRoom deletes the whole set once a room is empty.
	ClearRoom(ctx context.Context, room string) error
}
