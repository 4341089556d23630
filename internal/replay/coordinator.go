package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionqueue"
	"github.com/angelmondragon/weddingplanner-backend/internal/notify"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/metrics"
)

// Applier performs one queued action against the backend.
type Applier interface {
	ApplyAction(ctx context.Context, token string, action actionlog.QueuedAction) error
}

// Params groups the coordinator dependencies.
type Params struct {
	Queue        *actionqueue.Manager
	Applier      Applier
	Guard        Guard
	Logger       *logger.Logger
	Metrics      *metrics.ReplayMetrics
	RetainFailed bool
	// Timeout caps the whole replay; zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout matches the WEDPLAN_REPLAY_TIMEOUT default.
const DefaultTimeout = 90 * time.Second

// Failure describes one action that could not be applied.
type Failure struct {
	ActionID uuid.UUID            `json:"action_id"`
	Kind     enums.CartActionKind `json:"kind"`
	Message  string               `json:"message"`
}

// Result summarises one replay. Err aggregates every per-action error.
type Result struct {
	Skipped      bool                 `json:"skipped"`
	Total        int                  `json:"total"`
	Applied      int                  `json:"applied"`
	Failed       int                  `json:"failed"`
	Retained     int                  `json:"retained"`
	Unattempted  int                  `json:"unattempted"`
	Failures     []Failure            `json:"failures,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Err          error                `json:"-"`
}

// Coordinator replays a slot's deferred actions once the user has signed in.
type Coordinator struct {
	queue        *actionqueue.Manager
	applier      Applier
	guard        Guard
	logg         *logger.Logger
	metrics      *metrics.ReplayMetrics
	retainFailed bool
	timeout      time.Duration
}

func NewCoordinator(p Params) (*Coordinator, error) {
	if p.Queue == nil {
		return nil, fmt.Errorf("action queue required")
	}
	if p.Applier == nil {
		return nil, fmt.Errorf("applier required")
	}
	if p.Guard == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if held, ok := p.Guard.(interface{ TTL() time.Duration }); ok && timeout >= held.TTL() {
		return nil, fmt.Errorf("replay timeout %s must be shorter than the guard ttl %s", timeout, held.TTL())
	}
	return &Coordinator{
		queue:        p.Queue,
		applier:      p.Applier,
		guard:        p.Guard,
		logg:         p.Logger,
		metrics:      p.Metrics,
		retainFailed: p.RetainFailed,
		timeout:      timeout,
	}, nil
}

// Replay applies every queued action in enqueue order, one at a time, and
// then settles the log. A replay already running for the slot makes this
// call return a skipped result. An empty log yields no notification.
// Once the guard is held the replay no longer follows ctx cancellation; it
// runs until done or until the coordinator timeout, and whatever it did not
// reach stays queued.
func (c *Coordinator) Replay(ctx context.Context, slot, token string) (Result, error) {
	if token == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required for replay")
	}
	ctx = c.logg.WithSlot(ctx, slot)
	start := time.Now()

	release, ok, err := c.guard.Acquire(ctx, slot)
	if err != nil {
		c.metrics.ObserveRun(metrics.ReplayResultError, time.Since(start))
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay guard unavailable")
	}
	if !ok {
		c.logg.Info(ctx, "replay already in flight, skipping")
		c.metrics.ObserveRun(metrics.ReplayResultSkipped, time.Since(start))
		return Result{Skipped: true}, nil
	}
	defer release()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	drained, err := c.queue.Drain(runCtx, slot, func(ctx context.Context, action actionlog.QueuedAction) error {
		return c.applier.ApplyAction(ctx, token, action)
	}, c.retainFailed)
	result := c.summarise(drained)
	if err != nil {
		c.logg.Error(ctx, "replay could not settle the action log", err)
		c.metrics.ObserveRun(metrics.ReplayResultError, time.Since(start))
		return result, err
	}

	switch {
	case result.Total == 0:
		c.metrics.ObserveRun(metrics.ReplayResultEmpty, time.Since(start))
		return result, nil
	case result.Failed == 0:
		c.metrics.ObserveRun(metrics.ReplayResultSuccess, time.Since(start))
	default:
		c.metrics.ObserveRun(metrics.ReplayResultPartial, time.Since(start))
	}
	c.metrics.AddActions(metrics.OutcomeApplied, result.Applied)
	c.metrics.AddActions(metrics.OutcomeFailed, result.Failed)
	c.metrics.AddActions(metrics.OutcomeRetained, result.Retained)

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"total":       result.Total,
		"applied":     result.Applied,
		"failed":      result.Failed,
		"retained":    result.Retained,
		"unattempted": result.Unattempted,
	})
	if result.Unattempted > 0 {
		c.logg.Warn(logCtx, "replay deadline reached, remaining actions stay queued")
	}
	if result.Err != nil {
		c.logg.Warn(logCtx, "replay finished with failures: "+result.Err.Error())
	} else {
		c.logg.Info(logCtx, "replay finished")
	}
	return result, nil
}

func (c *Coordinator) summarise(drained actionqueue.DrainResult) Result {
	result := Result{
		Total:       len(drained.Actions),
		Applied:     drained.Applied,
		Failed:      len(drained.Failed),
		Retained:    drained.Retained,
		Unattempted: drained.Unattempted,
	}
	for _, failed := range drained.Failed {
		result.Err = multierr.Append(result.Err, fmt.Errorf("%s %s: %w", failed.Action.Kind, failed.Action.ID, failed.Err))
		result.Failures = append(result.Failures, Failure{
			ActionID: failed.Action.ID,
			Kind:     failed.Action.Kind,
			Message:  notify.FailureMessage(failed.Err),
		})
	}
	result.Notification = notify.ReplaySummary(result.Applied, result.Failed)
	return result
}
