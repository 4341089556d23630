package planner

import (
	"context"
	"net/http"

	"github.com/angelmondragon/weddingplanner-backend/api/middleware"
	"github.com/angelmondragon/weddingplanner-backend/api/responses"
	"github.com/angelmondragon/weddingplanner-backend/api/validators"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartgateway"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartstatus"
	"github.com/angelmondragon/weddingplanner-backend/internal/replay"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

const (
	maxCategoryLen      = 64
	defaultPendingLimit = 50
	maxPendingLimit     = 500
)

// Mutator routes a cart mutation through the deferred-action gateway.
type Mutator interface {
	Mutate(ctx context.Context, slot string, kind enums.CartActionKind, payload types.CartPayload) (cartgateway.Outcome, error)
}

// Replayer drains a slot once the planner is authenticated.
type Replayer interface {
	Replay(ctx context.Context, slot, token string) (replay.Result, error)
}

// PendingQueue is the read and reset surface of the action queue.
type PendingQueue interface {
	Pending(ctx context.Context, slot string) ([]actionlog.QueuedAction, error)
	Clear(ctx context.Context, slot string) error
}

// CartReader lists the authenticated planner's cart.
type CartReader interface {
	ListItems(ctx context.Context, token string, weddingID int64) ([]types.CartItem, error)
}

// CartAction applies a cart mutation now or defers it until sign-in.
// Deferred mutations answer 202 with the login redirect in the body.
func CartAction(gw Mutator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gw == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart gateway unavailable"))
			return
		}
		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cartActionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseCartActionKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
			return
		}

		outcome, err := gw.Mutate(r.Context(), slot, kind, req.Payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if outcome.Deferred {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, outcome)
	}
}

// Replay applies the device's deferred actions with the caller's identity.
func Replay(coord Replayer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coord == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "replay coordinator unavailable"))
			return
		}
		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		token, ok := middleware.TokenFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to apply saved selections"))
			return
		}

		result, err := coord.Replay(r.Context(), slot, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Pending lists the actions still waiting for sign-in, oldest first. Count
// is the full backlog even when limit truncates the list.
func Pending(queue PendingQueue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if queue == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "action queue unavailable"))
			return
		}
		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultPendingLimit, 1, maxPendingLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actions, err := queue.Pending(r.Context(), slot)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPendingResponse(actions, limit))
	}
}

// ClearPending discards every deferred action of the device.
func ClearPending(queue PendingQueue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if queue == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "action queue unavailable"))
			return
		}
		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := queue.Clear(r.Context(), slot); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

// Cart renders the signed-in planner's cart with a badge and the allowed
// next statuses for every item.
func Cart(reader CartReader, categories []string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, ok := listItems(w, r, reader, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newCartView(items, categories))
	}
}

// Progress reports how many planning categories the cart covers. The
// categories query parameter overrides the configured list.
func Progress(reader CartReader, categories []string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, ok := listItems(w, r, reader, logg)
		if !ok {
			return
		}
		wanted := categories
		if raw := r.URL.Query().Get("categories"); raw != "" {
			wanted = validators.SanitizeList(raw, maxCategoryLen)
		}
		responses.WriteSuccess(w, cartstatus.Progress(wanted, items))
	}
}

// Statuses describes the status lifecycle for clients.
func Statuses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newStatusesResponse())
	}
}

func listItems(w http.ResponseWriter, r *http.Request, reader CartReader, logg *logger.Logger) ([]types.CartItem, bool) {
	if reader == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart backend unavailable"))
		return nil, false
	}
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view your cart"))
		return nil, false
	}
	weddingID, err := validators.ParseQueryInt64(r, "wedding_id", true)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	items, err := reader.ListItems(r.Context(), token, weddingID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return items, true
}

func slotFromRequest(r *http.Request) (string, error) {
	slot := middleware.DeviceIDFromContext(r.Context())
	if slot == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "device id missing")
	}
	return slot, nil
}
