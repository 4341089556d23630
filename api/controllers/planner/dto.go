package planner

import (
	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartstatus"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

type cartActionRequest struct {
	Kind    string            `json:"kind" validate:"required"`
	Payload types.CartPayload `json:"payload"`
}

type pendingResponse struct {
	Count   int                      `json:"count"`
	Actions []actionlog.QueuedAction `json:"actions"`
}

func newPendingResponse(actions []actionlog.QueuedAction, limit int) pendingResponse {
	out := pendingResponse{Count: len(actions), Actions: actions}
	if limit > 0 && len(out.Actions) > limit {
		out.Actions = out.Actions[:limit]
	}
	if out.Actions == nil {
		out.Actions = []actionlog.QueuedAction{}
	}
	return out
}

type cartItemView struct {
	types.CartItem
	Badge        cartstatus.Badge       `json:"badge"`
	NextStatuses []enums.CartItemStatus `json:"next_statuses"`
}

type cartView struct {
	Items    []cartItemView          `json:"items"`
	Progress cartstatus.ProgressView `json:"progress"`
}

func newCartView(items []types.CartItem, categories []string) cartView {
	views := make([]cartItemView, 0, len(items))
	for _, item := range items {
		views = append(views, cartItemView{
			CartItem:     item,
			Badge:        cartstatus.BadgeFor(item.Status.String()),
			NextStatuses: cartstatus.AllowedNext(item.Status),
		})
	}
	return cartView{Items: views, Progress: cartstatus.Progress(categories, items)}
}

type statusView struct {
	cartstatus.Badge
	Next []enums.CartItemStatus `json:"next"`
}

type statusesResponse struct {
	Statuses []statusView `json:"statuses"`
}

func newStatusesResponse() statusesResponse {
	badges := cartstatus.Badges()
	out := make([]statusView, 0, len(badges))
	for _, badge := range badges {
		out = append(out, statusView{Badge: badge, Next: cartstatus.AllowedNext(enums.CartItemStatus(badge.Status))})
	}
	return statusesResponse{Statuses: out}
}
