package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Memory struct {
	mu       sync.Mutex
	cooldown time.Duration
	seen     *expirable.LRU[string, struct{}]
}

func NewMemory(size int, cooldown time.Duration) *Memory {
	if size <= 0 {
		size = 10000
	}
	return &Memory{
		cooldown: cooldown,
		seen:     expirable.NewLRU[string, struct{}](size, nil, cooldown),
	}
}

func (m *Memory) Allow(ctx context.Context, key string) (bool, error) {
	if m.cooldown <= 0 {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen.Get(key); ok {
		return false, nil
	}
	m.seen.Add(key, struct{}{})
	return true, nil
}
