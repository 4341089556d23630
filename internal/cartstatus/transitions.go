package cartstatus

import (
	"fmt"

	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
)

// booked is terminal; removal is a delete, not a transition.
var transitions = map[enums.CartItemStatus][]enums.CartItemStatus{
	enums.CartItemStatusWishlisted: {enums.CartItemStatusVisited, enums.CartItemStatusSelected, enums.CartItemStatusBooked},
	enums.CartItemStatusVisited:    {enums.CartItemStatusSelected, enums.CartItemStatusBooked},
	enums.CartItemStatusSelected:   {enums.CartItemStatusBooked},
	enums.CartItemStatusBooked:     {},
}

// CanTransition reports whether an item in from may be set to to.
// Setting the current status again is allowed and changes nothing.
func CanTransition(from, to enums.CartItemStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNext lists the statuses reachable from from, in lifecycle order.
func AllowedNext(from enums.CartItemStatus) []enums.CartItemStatus {
	next := transitions[from]
	out := make([]enums.CartItemStatus, len(next))
	copy(out, next)
	return out
}

// Validate returns a STATE_CONFLICT error for a disallowed transition.
func Validate(from, to enums.CartItemStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(
		pkgerrors.CodeStateConflict,
		fmt.Sprintf("cart item cannot move from %s to %s", from, to),
	).WithDetails(map[string]any{
		"from":    from,
		"to":      to,
		"allowed": AllowedNext(from),
	})
}
