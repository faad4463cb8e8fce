package client

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Options configures a Client. The zero value of every knob falls back to
// the server defaults so that callers only set what they care about.
type Options struct {
	// URL of the websocket endpoint. http/https schemes are rewritten
	// to ws/wss.
	URL string

	// ReconnectDelay is the initial backoff delay. Successive retries
	// grow by a factor of 1.5 up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	// MaxReconnectAttempts bounds automatic retries; once exhausted a
	// single EventReconnectFailed fires and retrying stops until the
	// next manual Connect.
	MaxReconnectAttempts int

	// ConnectTimeout bounds the dial plus handshake exchange.
	ConnectTimeout time.Duration
	// RoomOpTimeout bounds a join/leave acknowledgment.
	RoomOpTimeout time.Duration

	// MaxPendingOutbound caps the queue of events emitted while
	// disconnected; the oldest entries are dropped first.
	MaxPendingOutbound int

	Logger *slog.Logger
	Dialer *websocket.Dialer
}

const (
	defaultReconnectDelay       = 2 * time.Second
	defaultMaxReconnectDelay    = 30 * time.Second
	defaultMaxReconnectAttempts = 10
	defaultConnectTimeout       = 30 * time.Second
	defaultRoomOpTimeout        = 10 * time.Second
	defaultMaxPendingOutbound   = 50
)

func (o *Options) withDefaults() {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.MaxReconnectDelay <= 0 {
		o.MaxReconnectDelay = defaultMaxReconnectDelay
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.RoomOpTimeout <= 0 {
		o.RoomOpTimeout = defaultRoomOpTimeout
	}
	if o.MaxPendingOutbound <= 0 {
		o.MaxPendingOutbound = defaultMaxPendingOutbound
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
}
