package ws

import (
	"context"
	"errors"
	"sync"
)

// RuntimeClient is the server-side handle for one session. Writes go
// through a buffered channel and a single write pump so a slow receiver
// never blocks the gateway's fan-out.
type RuntimeClient struct {
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *WebSocket
	sessionID string
	userID    string
	out       chan []byte
	once      sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	sessionID, userID string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:       ctx,
		cancel:    cancel,
		ws:        ws,
		sessionID: sessionID,
		userID:    userID,
		out:       make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) SessionID() string { return c.sessionID }
func (c *RuntimeClient) UserID() string    { return c.userID }

func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client closed")
	default:
		// Buffer full: drop rather than stall the broadcast. The
		// client converges on its next received full document.
		return errors.New("client write buffer full")
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		// c.out is never closed: the gateway may still be fanning out
		// under its read lock. The write pump exits via ctx instead.
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
