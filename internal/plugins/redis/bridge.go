package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
)

// RedisEventBridge relays mutation broadcasts between nodes over one
// pub/sub channel. Each event carries its origin node id; subscribers
// drop their own events.
type RedisEventBridge struct {
	rdb     *redis.Client
	log     *slog.Logger
	channel string
	nodeID  string
}

func NewRedisEventBridge(rdb *redis.Client, log *slog.Logger, channel, nodeID string) *RedisEventBridge {
	return &RedisEventBridge{
		rdb:     rdb,
		log:     log,
		channel: channel,
		nodeID:  nodeID,
	}
}

func (b *RedisEventBridge) Publish(ctx context.Context, ev contracts.BridgeEvent) error {
	ev.Origin = b.nodeID
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe delivers peer events to handler until ctx is done. Events
// published by this node are skipped.
func (b *RedisEventBridge) Subscribe(
	ctx context.Context,
	handler func(ctx context.Context, ev contracts.BridgeEvent),
) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev contracts.BridgeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Error("bridge - subscribe - wrong payload", "err", err)
					continue
				}
				if ev.Origin == b.nodeID {
					continue
				}
				handler(ctx, ev)
			}
		}
	}()
	return nil
}
