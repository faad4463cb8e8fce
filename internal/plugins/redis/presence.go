package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore keeps one ZSET per room scored by last activity.
// Purely informational: the gateway's in-memory registry stays the
// authority on membership.
type RedisPresenceStore struct {
	rdb *redis.Client
	// staleAfter is how long a member counts as present after its last
	// check-in. TouchMember's TTL only bounds the whole set's lifetime.
	staleAfter time.Duration
}

func NewRedisPresenceStore(rdb *redis.Client, staleAfter time.Duration) *RedisPresenceStore {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Second
	}
	return &RedisPresenceStore{rdb: rdb, staleAfter: staleAfter}
}

// TouchMember adds/refreshes a session in the room's ZSet with the current
// timestamp.
func (p *RedisPresenceStore) TouchMember(
	ctx context.Context,
	room string,
	sessionID string,
	ttl time.Duration,
) error {
	key := "presence:" + room
	now := time.Now().Unix()

	err := p.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: sessionID,
	}).Err()
	if err != nil {
		return err
	}

	// Expire the whole ZSet so an abandoned room doesn't leak memory.
	return p.rdb.Expire(ctx, key, ttl*2).Err()
}

// Members returns sessions that checked in within the staleness window.
func (p *RedisPresenceStore) Members(ctx context.Context, room string) ([]string, error) {
	key := "presence:" + room
	threshold := time.Now().Add(-p.staleAfter).Unix()

	// Remove stale members first (Self-cleaning)
	p.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(threshold, 10))

	return p.rdb.ZRange(ctx, key, 0, -1).Result()
}

func (p *RedisPresenceStore) RemoveMember(ctx context.Context, room, sessionID string) error {
	return p.rdb.ZRem(ctx, "presence:"+room, sessionID).Err()
}

// ClearRoom deletes the entire ZSet for the room.
func (p *RedisPresenceStore) ClearRoom(ctx context.Context, room string) error {
	return p.rdb.Del(ctx, "presence:"+room).Err()
}
