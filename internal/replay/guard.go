package replay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	"github.com/angelmondragon/weddingplanner-backend/pkg/redis"
)

// Guard keeps replay from running twice at once for the same slot.
// Acquire returns ok=false, without error, when a replay is already in flight.
type Guard interface {
	Acquire(ctx context.Context, slot string) (release func(), ok bool, err error)
}

// LocalGuard is an in-process guard; enough for a single instance.
type LocalGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{inFlight: map[string]struct{}{}}
}

func (g *LocalGuard) Acquire(_ context.Context, slot string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[slot]; busy {
		return nil, false, nil
	}
	g.inFlight[slot] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, slot)
			g.mu.Unlock()
		})
	}, true, nil
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	ReplayLockKey(slot string) string
}

// RedisGuard holds a SETNX lock with a TTL so replays are exclusive across
// instances. The TTL bounds how long a crashed holder blocks the slot.
type RedisGuard struct {
	store lockStore
	ttl   time.Duration
}

func NewRedisGuard(store lockStore, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{store: store, ttl: ttl}
}

// TTL is the longest a holder keeps the lock; replays must finish within it.
func (g *RedisGuard) TTL() time.Duration {
	return g.ttl
}

func (g *RedisGuard) Acquire(ctx context.Context, slot string) (func(), bool, error) {
	key := g.store.ReplayLockKey(slot)
	token := uuid.NewString()
	ok, err := g.store.SetNX(ctx, key, token, g.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire replay lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			_, _ = g.store.ReleaseLock(context.WithoutCancel(ctx), key, token)
		})
	}, true, nil
}

// NewGuard picks the guard named by cfg.Guard.
func NewGuard(cfg config.ReplayConfig, rdb *redis.Client) (Guard, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Guard)) {
	case "", config.ReplayGuardLocal:
		return NewLocalGuard(), nil
	case config.ReplayGuardRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis replay guard requires a redis client")
		}
		return NewRedisGuard(rdb, cfg.LockTTL), nil
	default:
		return nil, fmt.Errorf("unknown replay guard %q", cfg.Guard)
	}
}
