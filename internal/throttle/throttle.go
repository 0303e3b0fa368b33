package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xxxsen/hemline/internal/config"
)

// Throttle admits at most one event per key within the cooldown window.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

func New(cfg config.ThrottleConfig, cooldown time.Duration) (Throttle, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "memory":
		return NewMemory(cfg.Size, cooldown), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedis(client, "hemline:login:", cooldown), nil
	default:
		return nil, fmt.Errorf("unsupported throttle type: %s", cfg.Type)
	}
}
