package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

var tracer = otel.Tracer("gateway")

// Gateway owns the authoritative room registry: which sessions exist and
// which rooms they are joined to. Rooms are a derived index over sessions;
// an empty room is deleted on the spot, never explicitly created.
type Gateway struct {
	log         *slog.Logger
	presence    contracts.PresenceStore
	presenceTTL time.Duration

	mu           sync.RWMutex
	sessions     map[string]contracts.Client            // session id → client
	rooms        map[string]map[string]contracts.Client // room → session id → client
	sessionRooms map[string]map[string]struct{}         // session id → room set
}

func New(log *slog.Logger, presence contracts.PresenceStore, presenceTTL time.Duration) *Gateway {
	return &Gateway{
		log:          log,
		presence:     presence,
		presenceTTL:  presenceTTL,
		sessions:     make(map[string]contracts.Client),
		rooms:        make(map[string]map[string]contracts.Client),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Register attaches a handshaken session and auto-joins its user room so
// that list created/deleted events reach it without an explicit join.
func (g *Gateway) Register(ctx context.Context, c contracts.Client) {
	g.mu.Lock()
	g.sessions[c.SessionID()] = c
	g.sessionRooms[c.SessionID()] = make(map[string]struct{})
	g.mu.Unlock()
	g.Join(ctx, c, domain.UserRoom(c.UserID()))
	g.log.InfoContext(ctx, "gateway - register - session attached",
		"session_id", c.SessionID(), "user_id", c.UserID())
}

// Unregister removes the session from every room it belongs to. Called on
// transport close; server-side membership never survives the transport.
func (g *Gateway) Unregister(ctx context.Context, c contracts.Client) {
	sid := c.SessionID()

	g.mu.Lock()
	left := make([]string, 0, len(g.sessionRooms[sid]))
	emptied := make([]string, 0, len(g.sessionRooms[sid]))
	for room := range g.sessionRooms[sid] {
		if g.removeLocked(sid, room) {
			emptied = append(emptied, room)
		}
		left = append(left, room)
	}
	delete(g.sessionRooms, sid)
	delete(g.sessions, sid)
	g.mu.Unlock()

	g.cleanPresence(ctx, sid, emptied, left)
	// Informational only; correctness never depends on anyone seeing it.
	for _, room := range left {
		g.notifyMemberLeft(ctx, room, sid)
	}
	g.log.InfoContext(ctx, "gateway - unregister - session detached",
		"session_id", sid, "rooms", len(left))
}

// Join adds the session to room and acknowledges via the caller. A session
// holds at most one room per namespace prefix: joining "liste-2" while in
// "liste-1" leaves "liste-1" first. "user" rooms are unaffected by "liste"
// joins. Joining a room the session is already in is a success.
func (g *Gateway) Join(ctx context.Context, c contracts.Client, room string) {
	ctx, span := tracer.Start(ctx, "Gateway.Join", trace.WithAttributes(
		attribute.String("session_id", c.SessionID()),
		attribute.String("room", room),
	))
	defer span.End()
	sid := c.SessionID()
	ns := domain.RoomNamespace(room)

	g.mu.Lock()
	for other := range g.sessionRooms[sid] {
		if other != room && domain.RoomNamespace(other) == ns {
			g.removeLocked(sid, other)
		}
	}
	if g.rooms[room] == nil {
		g.rooms[room] = make(map[string]contracts.Client)
	}
	g.rooms[room][sid] = c
	if g.sessionRooms[sid] == nil {
		g.sessionRooms[sid] = make(map[string]struct{})
	}
	g.sessionRooms[sid][room] = struct{}{}
	g.mu.Unlock()

	// Presence is informational and must never gate the join ack.
	if g.presence != nil {
		go g.pushRoomMembers(context.WithoutCancel(ctx), room, sid)
	}
	g.log.InfoContext(ctx, "gateway - join - membership updated",
		"session_id", sid, "room", room)
}

// Leave removes membership if present. Leaving a room the session is not
// in is not an error; the caller acknowledges success unconditionally.
func (g *Gateway) Leave(ctx context.Context, c contracts.Client, room string) {
	sid := c.SessionID()
	g.mu.Lock()
	emptied := g.removeLocked(sid, room)
	g.mu.Unlock()
	if emptied {
		g.cleanPresence(ctx, sid, []string{room}, nil)
	} else {
		g.cleanPresence(ctx, sid, nil, []string{room})
	}
	g.log.InfoContext(ctx, "gateway - leave - membership updated",
		"session_id", sid, "room", room)
}

// Broadcast fans event out to every session in room, the originator
// included: its own UI converges on the authoritative document too.
// Delivery is best-effort per recipient; an unreachable session
// resynchronizes on its next join.
func (g *Gateway) Broadcast(ctx context.Context, room, event string, payload json.RawMessage) {
	ctx, span := tracer.Start(ctx, "Gateway.Broadcast", trace.WithAttributes(
		attribute.String("room", room),
		attribute.String("event", event),
	))
	defer span.End()

	data, err := json.Marshal(domain.NewEventFrame(event, room, payload))
	if err != nil {
		g.log.ErrorContext(ctx, "gateway - broadcast - marshal failed", "room", room, "event", event, "err", err)
		return
	}

	g.mu.RLock()
	members := g.rooms[room]
	if len(members) == 0 {
		g.mu.RUnlock()
		g.log.InfoContext(ctx, "gateway - broadcast - empty room", "room", room, "event", event)
		return
	}
	delivered := 0
	for _, c := range members {
		if err := c.Send(ctx, data); err == nil {
			delivered++
		}
	}
	g.mu.RUnlock()
	span.SetAttributes(attribute.Int("delivered", delivered))
	g.log.InfoContext(ctx, "gateway - broadcast - fanned out",
		"room", room, "event", event, "delivered", delivered)
}

// BroadcastToUser fans event out to every session of one user. Sessions
// are auto-joined to their user room on register, so this is room fan-out
// under the user namespace.
func (g *Gateway) BroadcastToUser(ctx context.Context, userID, event string, payload json.RawMessage) {
	g.Broadcast(ctx, domain.UserRoom(userID), event, payload)
}

// RoomMembers returns the session ids currently joined to room.
func (g *Gateway) RoomMembers(room string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.rooms[room]))
	for sid := range g.rooms[room] {
		out = append(out, sid)
	}
	return out
}

// SessionRooms returns the rooms a session is joined to.
func (g *Gateway) SessionRooms(sessionID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.sessionRooms[sessionID]))
	for room := range g.sessionRooms[sessionID] {
		out = append(out, room)
	}
	return out
}

// removeLocked drops one membership edge and garbage-collects the room
// when it empties, reporting whether it did. Caller holds g.mu.
func (g *Gateway) removeLocked(sessionID, room string) bool {
	delete(g.rooms[room], sessionID)
	delete(g.sessionRooms[sessionID], room)
	if len(g.rooms[room]) == 0 {
		delete(g.rooms, room)
		return true
	}
	return false
}

// cleanPresence drops the departing session from the presence sets, and
// the whole set for rooms that just emptied. Off the hot path; presence
// is informational.
func (g *Gateway) cleanPresence(ctx context.Context, sessionID string, emptied, left []string) {
	if g.presence == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		for _, room := range emptied {
			_ = g.presence.ClearRoom(ctx, room)
		}
		for _, room := range left {
			_ = g.presence.RemoveMember(ctx, room, sessionID)
		}
	}()
}

func (g *Gateway) notifyMemberLeft(ctx context.Context, room, sessionID string) {
	payload, _ := json.Marshal(domain.MemberLeftPayload{
		SessionID: sessionID,
		Room:      room,
		LeftAt:    time.Now(),
	})
	g.Broadcast(ctx, room, domain.EventMemberLeft, payload)
}

// pushRoomMembers refreshes the presence set and tells the room who is
// currently viewing it. Runs off the join path.
func (g *Gateway) pushRoomMembers(ctx context.Context, room, sessionID string) {
	if err := g.presence.TouchMember(ctx, room, sessionID, g.presenceTTL); err != nil {
		g.log.ErrorContext(ctx, "gateway - push room members - presence touch failed",
			"room", room, "session_id", sessionID, "err", err)
	}
	members, err := g.presence.Members(ctx, room)
	if err != nil {
		g.log.ErrorContext(ctx, "gateway - push room members - presence read failed",
			"room", room, "err", err)
		return
	}
	payload, _ := json.Marshal(domain.RoomMembersPayload{Room: room, Members: members})
	g.Broadcast(ctx, room, domain.EventRoomMembers, payload)
}
