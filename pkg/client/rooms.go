package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

// JoinResult reports the settled state of a join.
type JoinResult struct {
	Room          string
	AlreadyInRoom bool
}

// JoinListRoom makes the client observe one list. At most one list room
// is tracked at a time: joining a second list leaves the first. The call
// resolves once the server acknowledges, or fails with ErrRoomJoinTimeout
// and rolls the tracked target back.
//
// Join and leave transitions serialize: a call issued while another is in
// flight waits its turn.
func (c *Client) JoinListRoom(ctx context.Context, listID string) (*JoinResult, error) {
	room := domain.ListeRoom(listID)
	if err := c.acquireTransition(ctx); err != nil {
		return nil, err
	}
	defer c.releaseTransition()

	c.mu.Lock()
	prev := c.room
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected && prev == room {
		return &JoinResult{Room: room, AlreadyInRoom: true}, nil
	}
	// A join issued while reconnecting waits for the transport, bounded
	// by the connect timeout.
	if err := c.waitConnected(ctx); err != nil {
		return nil, err
	}

	if prev != "" && prev != room {
		// Best-effort: the server evicts same-namespace rooms on join
		// anyway, and membership dies with the transport.
		if err := c.requestAck(ctx, domain.EventLeaveRoom, prev, domain.ErrRoomLeaveTimeout); err != nil {
			c.opts.Logger.Warn("client - join room - leave previous failed", "room", prev, "err", err)
		}
	}

	c.setRoom(room)
	if err := c.requestAck(ctx, domain.EventJoinRoom, room, domain.ErrRoomJoinTimeout); err != nil {
		// The join is transactional with respect to the local target.
		c.setRoom(prev)
		return nil, err
	}
	c.opts.Logger.Info("client - join room - joined", "room", room)
	return &JoinResult{Room: room}, nil
}

// LeaveListRoom stops observing a list. While disconnected it resolves
// immediately: server-side membership is tied to the transport session
// and was already cleaned up.
func (c *Client) LeaveListRoom(ctx context.Context, listID string) error {
	room := domain.ListeRoom(listID)
	if err := c.acquireTransition(ctx); err != nil {
		return err
	}
	defer c.releaseTransition()

	c.mu.Lock()
	cur := c.room
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		if cur == room {
			c.setRoom("")
		}
		return nil
	}
	if err := c.requestAck(ctx, domain.EventLeaveRoom, room, domain.ErrRoomLeaveTimeout); err != nil {
		return err
	}
	if cur == room {
		c.setRoom("")
	}
	c.opts.Logger.Info("client - leave room - left", "room", room)
	return nil
}

// CurrentRoom returns the room this client wants to be joined to; it may
// be set while disconnected and is rejoined automatically on reconnect.
func (c *Client) CurrentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// rejoinTrackedRoom runs after every transition into connected. A fresh
// transport has no server-side membership, so the tracked room is joined
// again; the rejoined room is a full resynchronization point.
func (c *Client) rejoinTrackedRoom() {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == "" {
		return
	}
	// Skip when a transition is already in flight: whoever holds the
	// gate settles the membership.
	select {
	case c.transition <- struct{}{}:
	default:
		return
	}
	defer c.releaseTransition()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RoomOpTimeout)
	defer cancel()
	if err := c.requestAck(ctx, domain.EventJoinRoom, room, domain.ErrRoomJoinTimeout); err != nil {
		// Kept as the target; the next reconnect tries again.
		c.opts.Logger.Error("client - rejoin - failed", "room", room, "err", err)
		return
	}
	c.opts.Logger.Info("client - rejoin - room restored", "room", room)
}

func (c *Client) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

func (c *Client) acquireTransition(ctx context.Context) error {
	select {
	case c.transition <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) releaseTransition() {
	<-c.transition
}

// requestAck sends a control event carrying a generated correlation id
// and waits for the matching acknowledgment, bounded by RoomOpTimeout.
func (c *Client) requestAck(ctx context.Context, event, room string, timeoutErr error) error {
	requestID := uuid.NewString()
	ch := c.registerAck(requestID)
	defer c.unregisterAck(requestID)

	data, _ := json.Marshal(domain.Frame{
		Type:      domain.TypeEvent,
		Event:     event,
		Room:      room,
		RequestID: requestID,
	})
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return domain.ErrTransportClosed
	}
	if err := c.writeRaw(conn, data); err != nil {
		return err
	}

	timer := time.NewTimer(c.opts.RoomOpTimeout)
	defer timer.Stop()
	select {
	case ack := <-ch:
		if !ack.OK {
			return fmt.Errorf("%s rejected: %s", event, ack.Message)
		}
		return nil
	case <-timer.C:
		return timeoutErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
