// Package client is the Go SDK for the list synchronization service. A
// Client owns exactly one logical transport session: it dials, keeps the
// session alive across network failures with exponential backoff, queues
// outbound events while disconnected, and keeps the process joined to the
// room it is watching.
//
// Clients are constructed explicitly and injected by the application;
// there is no package-level singleton, so tests can run isolated
// instances side by side.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

// State of the logical connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Local lifecycle events dispatched through the handler registry, next to
// the server-sent events ("liste-updated", …).
const (
	EventConnected       = "connected"
	EventDisconnected    = "disconnected"
	EventReconnectFailed = "reconnect-failed"
)

type connectAttempt struct {
	done chan struct{}
	err  error
}

// Client is the connection manager plus room coordinator.
type Client struct {
	opts     Options
	handlers *emitter
	pending  *pendingQueue

	mu           sync.Mutex
	state        State
	conn         *websocket.Conn
	gen          int // connection generation; guards stale read loops
	sessionID    string
	token        string
	attempts     int
	manual       bool // intentional disconnect, suppresses auto-retry
	inflight     *connectAttempt
	reconnecting bool
	connectedCh  chan struct{} // closed while state == StateConnected
	room         string        // the room this client wants to be joined to

	writeMu sync.Mutex

	ackMu sync.Mutex
	acks  map[string]chan domain.Frame

	// transition serializes join/leave operations: cap-1 semaphore.
	transition chan struct{}
}

func New(opts Options) *Client {
	opts.withDefaults()
	return &Client{
		opts:        opts,
		handlers:    newEmitter(),
		pending:     newPendingQueue(opts.MaxPendingOutbound),
		connectedCh: make(chan struct{}),
		acks:        make(map[string]chan domain.Frame),
		transition:  make(chan struct{}, 1),
	}
}

// State returns the current logical connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the server-assigned id of the current session, empty
// while disconnected. A reconnect yields a fresh id.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// On registers a handler for a named event and returns its unsubscribe
// func. Handlers are independent of transport state and survive
// reconnects.
func (c *Client) On(event string, fn func(json.RawMessage)) func() {
	return c.handlers.On(event, fn)
}

// Off removes every handler for the event.
func (c *Client) Off(event string) {
	c.handlers.Off(event)
}

// Connect establishes the transport session. Idempotent: when already
// connected it returns immediately, and concurrent callers share a single
// in-flight handshake. A failure other than ErrAuthentication starts the
// automatic retry policy in the background.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.manual = false
	c.mu.Unlock()

	err := c.doConnect(ctx)
	if err != nil && !errors.Is(err, domain.ErrAuthentication) && ctx.Err() == nil {
		c.scheduleReconnect()
	}
	return err
}

// Disconnect tears the session down intentionally: best-effort leave of
// the current room, then transport close. No automatic retry afterwards.
// Idempotent. The tracked room target survives, so a later Connect joins
// it again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	conn := c.conn
	room := c.room
	connected := c.state == StateConnected
	c.conn = nil
	c.sessionID = ""
	c.gen++ // the read loop's close handling becomes a no-op
	c.attempts = 0
	wasDisconnected := c.state == StateDisconnected
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		if connected && room != "" {
			// Fire and forget: server-side membership dies with the
			// transport anyway.
			frame, _ := json.Marshal(domain.Frame{
				Type: domain.TypeEvent, Event: domain.EventLeaveRoom, Room: room,
			})
			_ = c.writeRaw(conn, frame)
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if !wasDisconnected {
		c.handlers.dispatch(EventDisconnected, nil)
	}
}

// Emit sends a named event now when connected (true), or enqueues it for
// the next connection (false). The queue is bounded; the oldest entries
// are evicted first.
func (c *Client) Emit(event string, payload any) bool {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			c.opts.Logger.Error("client - emit - marshal failed", "event", event, "err", err)
			return false
		}
	}
	data, _ := json.Marshal(domain.NewEventFrame(event, "", raw))

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected && conn != nil {
		if err := c.writeRaw(conn, data); err == nil {
			return true
		}
	}
	c.pending.Push(data)
	return false
}

// PendingOutbound reports how many events are queued for the next
// connection.
func (c *Client) PendingOutbound() int {
	return c.pending.Len()
}

// doConnect is the single entry point for both manual connects and
// automatic retries. All concurrent callers share one attempt.
func (c *Client) doConnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	if att := c.inflight; att != nil {
		c.mu.Unlock()
		select {
		case <-att.done:
			return att.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	att := &connectAttempt{done: make(chan struct{})}
	c.inflight = att
	c.setStateLocked(StateConnecting)
	token := c.token
	c.mu.Unlock()

	err := c.dial(ctx, token)

	c.mu.Lock()
	c.inflight = nil
	if err == nil && c.manual {
		// Disconnect landed while the dial was in flight; the intentional
		// teardown wins over the late handshake.
		conn := c.conn
		c.conn = nil
		c.sessionID = ""
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		err = domain.ErrTransportClosed
	} else if err != nil {
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
	} else {
		c.attempts = 0
		c.setStateLocked(StateConnected)
		c.mu.Unlock()
		c.flushPending()
		c.handlers.dispatch(EventConnected, nil)
		// Server-side membership did not survive the old transport.
		go c.rejoinTrackedRoom()
	}
	att.err = err
	close(att.done)
	return err
}

// dial performs the transport connection and the handshake exchange,
// bounded as a whole by ConnectTimeout.
func (c *Client) dial(ctx context.Context, token string) error {
	dctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	endpoint, err := wsURL(c.opts.URL)
	if err != nil {
		return err
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := c.opts.Dialer.DialContext(dctx, endpoint, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return domain.ErrAuthentication
		}
		if dctx.Err() != nil && ctx.Err() == nil {
			return domain.ErrConnectTimeout
		}
		return fmt.Errorf("dial: %w", err)
	}

	deadline, _ := dctx.Deadline()
	_ = conn.SetReadDeadline(deadline)
	var hs domain.HandshakeFrame
	if err := conn.ReadJSON(&hs); err != nil {
		_ = conn.Close()
		if dctx.Err() != nil && ctx.Err() == nil {
			return domain.ErrConnectTimeout
		}
		return fmt.Errorf("handshake: %w", err)
	}
	if hs.Type != domain.TypeHandshake {
		_ = conn.Close()
		return fmt.Errorf("handshake: unexpected first frame %q", hs.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.conn = conn
	c.sessionID = hs.SessionID
	c.mu.Unlock()
	go c.readLoop(conn, gen)

	c.opts.Logger.Info("client - connect - session established", "session_id", hs.SessionID)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		var frame domain.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.opts.Logger.Error("client - read loop - wrong frame format", "err", err)
			continue
		}
		switch frame.Type {
		case domain.TypeAck:
			c.deliverAck(frame)
		case domain.TypeEvent:
			c.handlers.dispatch(frame.Event, frame.Payload)
		}
	}
}

// handleClose reacts to a transport failure on the current generation.
// A manual Disconnect bumps the generation first, so its own read loop
// ending here cannot trigger a retry.
func (c *Client) handleClose(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.sessionID = ""
	manual := c.manual
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.handlers.dispatch(EventDisconnected, nil)
	if manual {
		return
	}
	c.opts.Logger.Info("client - transport closed - scheduling reconnect", "cause", cause)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.reconnecting || c.manual {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()
	go c.reconnectLoop()
}

// reconnectLoop retries with exponential backoff until success, a fatal
// auth rejection, a manual disconnect, or attempt exhaustion. Exhaustion
// emits exactly one EventReconnectFailed and resets the counter so a
// later manual Connect starts fresh.
func (c *Client) reconnectLoop() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()
	for {
		c.mu.Lock()
		if c.manual || c.state == StateConnected {
			c.mu.Unlock()
			return
		}
		c.attempts++
		attempt := c.attempts
		if attempt > c.opts.MaxReconnectAttempts {
			c.attempts = 0
			c.mu.Unlock()
			c.opts.Logger.Error("client - reconnect - attempts exhausted",
				"max_attempts", c.opts.MaxReconnectAttempts)
			payload, _ := json.Marshal(map[string]any{
				"error":    domain.ErrReconnectFailed.Error(),
				"attempts": c.opts.MaxReconnectAttempts,
			})
			c.handlers.dispatch(EventReconnectFailed, payload)
			return
		}
		c.mu.Unlock()

		delay := backoffDelay(attempt, c.opts.ReconnectDelay, c.opts.MaxReconnectDelay)
		c.opts.Logger.Info("client - reconnect - retry scheduled", "attempt", attempt, "delay", delay)
		time.Sleep(delay)

		c.mu.Lock()
		if c.manual {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		err := c.doConnect(context.Background())
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrAuthentication) {
			// The credential is bad; retrying cannot fix it. A later
			// manual connect starts a fresh backoff cycle.
			c.mu.Lock()
			c.attempts = 0
			c.mu.Unlock()
			c.opts.Logger.Error("client - reconnect - authentication rejected")
			return
		}
	}
}

// flushPending writes queued events in FIFO order on the fresh transport.
func (c *Client) flushPending() {
	queued := c.pending.Drain()
	if len(queued) == 0 {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		for _, data := range queued {
			c.pending.Push(data)
		}
		return
	}
	for i, data := range queued {
		if err := c.writeRaw(conn, data); err != nil {
			// Transport died mid-flush; keep the rest for next time.
			for _, rest := range queued[i:] {
				c.pending.Push(rest)
			}
			return
		}
	}
	c.opts.Logger.Info("client - flush - queued events sent", "count", len(queued))
}

func (c *Client) writeRaw(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// setStateLocked keeps connectedCh in sync with the state: the channel is
// closed exactly while connected, so waiters can block on it.
func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	if c.state == StateConnected {
		c.connectedCh = make(chan struct{})
	}
	c.state = s
	if s == StateConnected {
		close(c.connectedCh)
	}
}

// waitConnected blocks until connected, bounded by ConnectTimeout.
func (c *Client) waitConnected(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	ch := c.connectedCh
	c.mu.Unlock()

	timer := time.NewTimer(c.opts.ConnectTimeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return domain.ErrConnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) registerAck(requestID string) chan domain.Frame {
	ch := make(chan domain.Frame, 1)
	c.ackMu.Lock()
	c.acks[requestID] = ch
	c.ackMu.Unlock()
	return ch
}

func (c *Client) unregisterAck(requestID string) {
	c.ackMu.Lock()
	delete(c.acks, requestID)
	c.ackMu.Unlock()
}

func (c *Client) deliverAck(frame domain.Frame) {
	c.ackMu.Lock()
	ch := c.acks[frame.RequestID]
	delete(c.acks, frame.RequestID)
	c.ackMu.Unlock()
	if ch != nil {
		ch <- frame
	}
}

// wsURL rewrites http/https schemes to ws/wss.
func wsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("bad endpoint url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("bad endpoint scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}
