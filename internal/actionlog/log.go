package actionlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	"github.com/angelmondragon/weddingplanner-backend/pkg/redis"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// QueuedAction is a cart mutation recorded while the visitor had no identity.
// It is stored and passed by value and never edited once appended.
type QueuedAction struct {
	ID         uuid.UUID            `json:"id"`
	Kind       enums.CartActionKind `json:"kind"`
	Payload    types.CartPayload    `json:"payload"`
	EnqueuedAt time.Time            `json:"enqueued_at"`
}

var (
	// ErrLogFull is returned by Append when the slot already holds the
	// configured maximum number of entries.
	ErrLogFull = errors.New("action log is full")
	// ErrInvalidSlot is returned for an empty or oversized slot name.
	ErrInvalidSlot = errors.New("invalid action log slot")
)

const maxSlotLen = 128

// Log is an ordered, durable list of deferred actions per browser slot.
// Insertion order is application order.
type Log interface {
	Append(ctx context.Context, slot string, action QueuedAction) error
	ReadAll(ctx context.Context, slot string) ([]QueuedAction, error)
	// Clear is idempotent.
	Clear(ctx context.Context, slot string) error
	IsEmpty(ctx context.Context, slot string) (bool, error)
	// Remove drops the first n entries and puts retained back at the head
	// in the given order. Entries appended after the first n survive.
	Remove(ctx context.Context, slot string, n int, retained ...QueuedAction) error
}

func checkSlot(slot string) error {
	slot = strings.TrimSpace(slot)
	if slot == "" || len(slot) > maxSlotLen {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// Open builds the Log selected by cfg.Driver.
func Open(cfg config.ActionLogConfig, rdb *redis.Client, gdb *db.Client) (Log, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.ActionLogDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis action log requires a redis client")
		}
		return NewRedisLog(rdb, cfg.MaxEntries, cfg.TTL), nil
	case config.ActionLogDriverSQL:
		if gdb == nil {
			return nil, fmt.Errorf("sql action log requires a database client")
		}
		return NewSQLLog(gdb, cfg.MaxEntries, cfg.TTL), nil
	case config.ActionLogDriverMemory:
		return NewMemoryLog(cfg.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown action log driver %q", cfg.Driver)
	}
}
