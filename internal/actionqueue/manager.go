package actionqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/metrics"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// ApplyFunc performs one queued action against the backend.
type ApplyFunc func(ctx context.Context, action actionlog.QueuedAction) error

// FailedAction pairs an action with the error its application returned.
type FailedAction struct {
	Action actionlog.QueuedAction
	Err    error
}

// DrainResult accounts for every action read by Drain. Unattempted counts
// the actions left in the log because ctx ended before they were applied.
type DrainResult struct {
	Actions     []actionlog.QueuedAction
	Applied     int
	Failed      []FailedAction
	Retained    int
	Unattempted int
}

// Manager gives the action log queue semantics. It is the only writer of
// the log.
type Manager struct {
	log     actionlog.Log
	logg    *logger.Logger
	metrics *metrics.QueueMetrics
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewManager(log actionlog.Log, logg *logger.Logger, m *metrics.QueueMetrics) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("action log required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Manager{log: log, logg: logg, metrics: m, now: time.Now}, nil
}

// stamp returns the current time, never earlier than a previous stamp.
func (m *Manager) stamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	if now.Before(m.last) {
		now = m.last
	}
	m.last = now
	return now
}

// Enqueue records a cart mutation for later replay.
func (m *Manager) Enqueue(ctx context.Context, slot string, kind enums.CartActionKind, payload types.CartPayload) (actionlog.QueuedAction, error) {
	if err := payload.Validate(kind); err != nil {
		return actionlog.QueuedAction{}, err
	}

	action := actionlog.QueuedAction{
		ID:         uuid.New(),
		Kind:       kind,
		Payload:    payload.Clone(),
		EnqueuedAt: m.stamp(),
	}

	if err := m.log.Append(ctx, slot, action); err != nil {
		ctx = m.logg.WithField(m.logg.WithSlot(ctx, slot), "kind", kind.String())
		if errors.Is(err, actionlog.ErrLogFull) {
			m.metrics.IncFailure("full")
			m.logg.Warn(ctx, "action log full, deferred action dropped")
			return actionlog.QueuedAction{}, pkgerrors.Wrap(pkgerrors.CodeQueueFull, err, "too many pending cart actions")
		}
		if errors.Is(err, actionlog.ErrInvalidSlot) {
			return actionlog.QueuedAction{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid device slot")
		}
		m.metrics.IncFailure("storage")
		m.logg.Error(ctx, "failed to append deferred action", err)
		return actionlog.QueuedAction{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "action log unavailable")
	}

	m.metrics.IncEnqueued(kind.String())
	return action, nil
}

// Pending returns the queued actions without removing them.
func (m *Manager) Pending(ctx context.Context, slot string) ([]actionlog.QueuedAction, error) {
	actions, err := m.log.ReadAll(ctx, slot)
	if err != nil {
		return nil, wrapStorage(err, "read action log")
	}
	return actions, nil
}

// HasPendingActions reads the log on every call; it never caches.
func (m *Manager) HasPendingActions(ctx context.Context, slot string) (bool, error) {
	empty, err := m.log.IsEmpty(ctx, slot)
	if err != nil {
		return false, wrapStorage(err, "probe action log")
	}
	return !empty, nil
}

// Clear empties the slot. Clearing an empty slot is a no-op.
func (m *Manager) Clear(ctx context.Context, slot string) error {
	if err := m.log.Clear(ctx, slot); err != nil {
		return wrapStorage(err, "clear action log")
	}
	return nil
}

// Drain applies every queued action in order and then removes them from the
// log as one step. A failing action never stops the ones after it. With
// retainFailed the failed actions are written back at the head of the log.
// Once ctx is done no further action is attempted, and the unattempted
// suffix stays in the log whatever the policy.
func (m *Manager) Drain(ctx context.Context, slot string, apply ApplyFunc, retainFailed bool) (DrainResult, error) {
	if apply == nil {
		return DrainResult{}, fmt.Errorf("apply func required")
	}
	actions, err := m.log.ReadAll(ctx, slot)
	if err != nil {
		return DrainResult{}, wrapStorage(err, "read action log")
	}
	result := DrainResult{Actions: actions}
	if len(actions) == 0 {
		return result, nil
	}

	attempted := 0
	for _, action := range actions {
		if ctx.Err() != nil {
			break
		}
		attempted++
		if err := apply(ctx, action); err != nil {
			result.Failed = append(result.Failed, FailedAction{Action: action, Err: err})
			continue
		}
		result.Applied++
	}

	var retained []actionlog.QueuedAction
	if retainFailed {
		for _, failed := range result.Failed {
			retained = append(retained, failed.Action)
		}
	}
	result.Unattempted = len(actions) - attempted
	retained = append(retained, actions[attempted:]...)
	// detached so a cancelled request cannot leave applied actions in the log
	if err := m.log.Remove(context.WithoutCancel(ctx), slot, len(actions), retained...); err != nil {
		m.logg.Error(m.logg.WithSlot(ctx, slot), "failed to settle action log after drain", err)
		return result, wrapStorage(err, "settle action log")
	}
	result.Retained = len(retained) - result.Unattempted
	return result, nil
}

func wrapStorage(err error, msg string) error {
	if errors.Is(err, actionlog.ErrInvalidSlot) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid device slot")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
