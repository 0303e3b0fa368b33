package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares the cooldown between instances with SET NX and a TTL.
type Redis struct {
	client   *redis.Client
	prefix   string
	cooldown time.Duration
}

func NewRedis(client *redis.Client, prefix string, cooldown time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, cooldown: cooldown}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if r.cooldown <= 0 {
		return true, nil
	}
	return r.client.SetNX(ctx, r.prefix+key, time.Now().Unix(), r.cooldown).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
