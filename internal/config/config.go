package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Redis       *RedisConfig
	Postgres    *PostgresConfig
	Sync        *SyncConfig
	Logger      *LoggerConfig
	Tracer      *TracerConfig
	SecretToken string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
	// NodeID identifies this node on the event bridge so it can skip
	// its own published events.
	NodeID string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
	// BridgeChannel is the pub/sub channel carrying cross-node
	// mutation broadcasts.
	BridgeChannel string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// SyncConfig carries the knobs of the synchronization core. The same
// values parametrize the client SDK defaults.
type SyncConfig struct {
	ReconnectDelay       time.Duration // initial backoff delay
	MaxReconnectAttempts int
	ConnectTimeout       time.Duration
	RoomOpTimeout        time.Duration // join/leave acknowledgment window
	MaxPendingOutbound   int
	PresenceTTL          time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}
