package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:sw:"

// RedisGuard is a Guard shared by every instance behind the same Redis.
// Each key is a sorted set of attempt ids scored by unix milliseconds.
type RedisGuard struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisGuard(client redis.UniversalClient) *RedisGuard {
	return &RedisGuard{client: client, now: time.Now}
}

func (g *RedisGuard) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	if max <= 0 || window <= 0 {
		return false, nil
	}

	now := g.now().UnixMilli()
	rkey := redisKeyPrefix + key
	member := uuid.NewString()

	var card *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, rkey, "-inf", strconv.FormatInt(now-window.Milliseconds(), 10))
		pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now), Member: member})
		card = pipe.ZCard(ctx, rkey)
		pipe.PExpire(ctx, rkey, window)
		return nil
	})
	if err != nil {
		return false, err
	}

	if card.Val() > int64(max) {
		// denied attempts are not recorded
		if err := g.client.ZRem(ctx, rkey, member).Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
