package contracts

import (
	"context"
	"encoding/json"
)

// BridgeEvent is a mutation broadcast crossing node boundaries. Origin is
// the publishing node id so a node never re-delivers its own fan-out.
type BridgeEvent struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EventBridge relays mutation broadcasts between server nodes so that
// sessions connected elsewhere still converge on the latest document.
type EventBridge interface {
	// Publish emits the event to every peer node.
	Publish(ctx context.Context, ev BridgeEvent) error
	// Subscribe delivers peer events to handler until ctx is done.
	Subscribe(ctx context.Context, handler func(ctx context.Context, ev BridgeEvent)) error
}
