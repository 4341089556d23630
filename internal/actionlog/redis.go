package actionlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/weddingplanner-backend/pkg/redis"
)

type redisStore interface {
	BoundedRPush(ctx context.Context, key string, value any, max int64, ttl time.Duration) (int64, error)
	TrimHead(ctx context.Context, key string, n int64, ttl time.Duration, keep ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
	ActionLogKey(slot string) string
}

// RedisLog keeps one JSON-encoded Redis list per slot with a sliding TTL.
type RedisLog struct {
	store      redisStore
	maxEntries int
	ttl        time.Duration
}

func NewRedisLog(store redisStore, maxEntries int, ttl time.Duration) *RedisLog {
	return &RedisLog{store: store, maxEntries: maxEntries, ttl: ttl}
}

func (l *RedisLog) Append(ctx context.Context, slot string, action QueuedAction) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode queued action: %w", err)
	}
	if _, err := l.store.BoundedRPush(ctx, l.store.ActionLogKey(slot), raw, int64(l.maxEntries), l.ttl); err != nil {
		if errors.Is(err, redis.ErrListFull) {
			return ErrLogFull
		}
		return fmt.Errorf("append action log: %w", err)
	}
	return nil
}

func (l *RedisLog) ReadAll(ctx context.Context, slot string) ([]QueuedAction, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	values, err := l.store.LRange(ctx, l.store.ActionLogKey(slot), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read action log: %w", err)
	}
	actions := make([]QueuedAction, 0, len(values))
	for i, raw := range values {
		var action QueuedAction
		if err := json.Unmarshal([]byte(raw), &action); err != nil {
			return nil, fmt.Errorf("decode action log entry %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func (l *RedisLog) Clear(ctx context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if err := l.store.Del(ctx, l.store.ActionLogKey(slot)); err != nil {
		return fmt.Errorf("clear action log: %w", err)
	}
	return nil
}

func (l *RedisLog) IsEmpty(ctx context.Context, slot string) (bool, error) {
	if err := checkSlot(slot); err != nil {
		return false, err
	}
	n, err := l.store.LLen(ctx, l.store.ActionLogKey(slot))
	if err != nil {
		return false, fmt.Errorf("action log length: %w", err)
	}
	return n == 0, nil
}

func (l *RedisLog) Remove(ctx context.Context, slot string, n int, retained ...QueuedAction) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if n <= 0 && len(retained) == 0 {
		return nil
	}
	keep := make([]string, 0, len(retained))
	for _, action := range retained {
		raw, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("encode retained action: %w", err)
		}
		keep = append(keep, string(raw))
	}
	if n < 0 {
		n = 0
	}
	if err := l.store.TrimHead(ctx, l.store.ActionLogKey(slot), int64(n), l.ttl, keep...); err != nil {
		return fmt.Errorf("trim action log: %w", err)
	}
	return nil
}
