package cartgateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionqueue"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartstatus"
	"github.com/angelmondragon/weddingplanner-backend/internal/notify"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/metrics"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Params groups the gateway dependencies.
type Params struct {
	Queue      *actionqueue.Manager
	Backend    Backend
	Identity   IdentityProvider
	Redirector Redirector
	Logger     *logger.Logger
	Metrics    *metrics.GatewayMetrics
	Timeout    time.Duration
}

// Outcome describes what happened to a requested mutation. Callers re-fetch
// the cart after an applied mutation; Item is informational only.
type Outcome struct {
	Kind         enums.CartActionKind `json:"kind"`
	Deferred     bool                 `json:"deferred"`
	Persisted    bool                 `json:"persisted"`
	ActionID     *uuid.UUID           `json:"action_id,omitempty"`
	RedirectURL  string               `json:"redirect_url,omitempty"`
	Applied      bool                 `json:"applied"`
	Item         *types.CartItem      `json:"item,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

// Gateway is the single entry point for cart mutations.
type Gateway struct {
	queue      *actionqueue.Manager
	backend    Backend
	identity   IdentityProvider
	redirector Redirector
	logg       *logger.Logger
	metrics    *metrics.GatewayMetrics
	timeout    time.Duration
}

func New(p Params) (*Gateway, error) {
	if p.Queue == nil {
		return nil, fmt.Errorf("action queue required")
	}
	if p.Backend == nil {
		return nil, fmt.Errorf("cart backend required")
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if p.Redirector == nil {
		return nil, fmt.Errorf("redirector required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		queue:      p.Queue,
		backend:    p.Backend,
		identity:   p.Identity,
		redirector: p.Redirector,
		logg:       p.Logger,
		metrics:    p.Metrics,
		timeout:    timeout,
	}, nil
}

// Backend exposes the backend the gateway applies mutations to.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// Mutate applies the mutation now when an identity is available, or defers
// it to the slot's action log and asks for an authentication redirect.
// Only an invalid request returns an error; backend failures are reported
// through the outcome's notification.
func (g *Gateway) Mutate(ctx context.Context, slot string, kind enums.CartActionKind, payload types.CartPayload) (Outcome, error) {
	if err := payload.Validate(kind); err != nil {
		return Outcome{}, err
	}
	ctx = g.logg.WithField(g.logg.WithSlot(ctx, slot), "kind", kind.String())

	token, ok := g.identity(ctx)
	if !ok {
		return g.deferAction(ctx, slot, kind, payload)
	}

	out := Outcome{Kind: kind}
	item, err := g.Apply(ctx, token, kind, payload)
	if err != nil {
		out.Notification = notify.MutationFailed(err)
		return out, nil
	}
	out.Applied = true
	out.Item = item
	out.Notification = notify.MutationApplied(kind)
	return out, nil
}

func (g *Gateway) deferAction(ctx context.Context, slot string, kind enums.CartActionKind, payload types.CartPayload) (Outcome, error) {
	out := Outcome{
		Kind:        kind,
		Deferred:    true,
		RedirectURL: g.redirector.AuthRedirect(ctx),
	}
	action, err := g.queue.Enqueue(ctx, slot, kind, payload)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return Outcome{}, err
		}
		g.logg.Warn(ctx, "deferred cart action not persisted: "+err.Error())
		out.Notification = notify.DeferFailed()
		g.metrics.IncMutation(kind.String(), metrics.OutcomeFailed)
		return out, nil
	}
	id := action.ID
	out.ActionID = &id
	out.Persisted = true
	g.metrics.IncMutation(kind.String(), metrics.OutcomeDeferred)
	return out, nil
}

// ApplyAction replays one queued action.
func (g *Gateway) ApplyAction(ctx context.Context, token string, action actionlog.QueuedAction) error {
	_, err := g.Apply(ctx, token, action.Kind, action.Payload)
	return err
}

// Apply translates a mutation into exactly one backend write. Removes and
// updates without an item id, and status updates that need the current
// status for the local transition check, cost one extra ListItems read
// before that write. There are no retries.
func (g *Gateway) Apply(ctx context.Context, token string, kind enums.CartActionKind, payload types.CartPayload) (*types.CartItem, error) {
	item, err := g.apply(ctx, token, kind, payload)
	if err != nil {
		g.metrics.IncMutation(kind.String(), metrics.OutcomeFailed)
		g.logg.Warn(ctx, "cart mutation failed: "+err.Error())
		return nil, err
	}
	g.metrics.IncMutation(kind.String(), metrics.OutcomeApplied)
	return item, nil
}

func (g *Gateway) apply(ctx context.Context, token string, kind enums.CartActionKind, payload types.CartPayload) (*types.CartItem, error) {
	if err := payload.Validate(kind); err != nil {
		return nil, err
	}

	switch kind {
	case enums.CartActionAddToCart:
		upsert, err := payload.ToUpsert()
		if err != nil {
			return nil, err
		}
		var created types.CartItem
		err = g.call(ctx, func(ctx context.Context) error {
			var callErr error
			created, callErr = g.backend.CreateItem(ctx, token, upsert)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		return &created, nil

	case enums.CartActionRemoveFromCart:
		id, _, err := g.resolve(ctx, token, payload, false)
		if err != nil {
			return nil, err
		}
		return nil, g.call(ctx, func(ctx context.Context) error {
			return g.backend.DeleteItem(ctx, token, id)
		})

	case enums.CartActionUpdateCart:
		patch, err := payload.ToPatch()
		if err != nil {
			return nil, err
		}
		id, current, err := g.resolve(ctx, token, payload, patch.Status != nil)
		if err != nil {
			return nil, err
		}
		if current != nil && patch.Status != nil {
			if err := cartstatus.Validate(current.Status, *patch.Status); err != nil {
				return nil, err
			}
		}
		var updated types.CartItem
		err = g.call(ctx, func(ctx context.Context) error {
			var callErr error
			updated, callErr = g.backend.UpdateItem(ctx, token, id, patch)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported action kind %q", kind))
}

// resolve returns the canonical cart-item id for payload. The wedding's items
// are listed only when the id is missing or needCurrent asks for the current
// item; otherwise the returned item is nil.
func (g *Gateway) resolve(ctx context.Context, token string, payload types.CartPayload, needCurrent bool) (uuid.UUID, *types.CartItem, error) {
	if payload.ItemID != nil && !needCurrent {
		return *payload.ItemID, nil, nil
	}
	if payload.WeddingID <= 0 {
		if payload.ItemID == nil {
			return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item_id or vendor_id with wedding_id is required")
		}
		return *payload.ItemID, nil, nil
	}

	var items []types.CartItem
	err := g.call(ctx, func(ctx context.Context) error {
		var callErr error
		items, callErr = g.backend.ListItems(ctx, token, payload.WeddingID)
		return callErr
	})
	if err != nil {
		return uuid.Nil, nil, err
	}
	for i := range items {
		item := items[i]
		if payload.ItemID != nil && item.ID == *payload.ItemID {
			return item.ID, &item, nil
		}
		if payload.ItemID == nil && item.VendorID == payload.VendorID {
			return item.ID, &item, nil
		}
	}
	if payload.ItemID != nil {
		return *payload.ItemID, nil, nil
	}
	return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor is not in this wedding's cart")
}

func (g *Gateway) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart backend timed out")
		}
		return err
	}
	return nil
}
