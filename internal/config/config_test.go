package config

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 2*time.Second, cfg.Sync.ReconnectDelay)
	assert.Equal(t, 10, cfg.Sync.MaxReconnectAttempts)
	assert.Equal(t, 30*time.Second, cfg.Sync.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Sync.RoomOpTimeout)
	assert.Equal(t, 50, cfg.Sync.MaxPendingOutbound)
	assert.Equal(t, "liste-events", cfg.Redis.BridgeChannel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_RECONNECT_DELAY", "500ms")
	t.Setenv("SYNC_MAX_RECONNECT_ATTEMPTS", "3")
	t.Setenv("SYNC_MAX_PENDING_OUTBOUND", "7")
	t.Setenv("SERVICE_NODE_ID", "node-a")

	cfg := Load()
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.ReconnectDelay)
	assert.Equal(t, 3, cfg.Sync.MaxReconnectAttempts)
	assert.Equal(t, 7, cfg.Sync.MaxPendingOutbound)
	assert.Equal(t, "node-a", cfg.Service.NodeID)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SYNC_MAX_RECONNECT_ATTEMPTS", "many")
	t.Setenv("SYNC_CONNECT_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 10, cfg.Sync.MaxReconnectAttempts)
	assert.Equal(t, 30*time.Second, cfg.Sync.ConnectTimeout)
}
