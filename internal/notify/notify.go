package notify

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
)

const (
	MsgAdded          = "Vendor added to your cart"
	MsgRemoved        = "Vendor removed from your cart"
	MsgUpdated        = "Cart updated"
	MsgGenericFailure = "Something went wrong. Please try again."
	MsgReplayApplied  = "Your saved selections have been added to your cart"
	MsgReplayPartial  = "Some of your saved selections could not be applied"
	MsgDeferFailed    = "We could not save your selection. Please add it again after signing in."
)

// Notification is a single user-facing toast.
type Notification struct {
	Level   enums.NotificationLevel `json:"level"`
	Message string                  `json:"message"`
}

func Success(message string) *Notification {
	return &Notification{Level: enums.NotificationLevelSuccess, Message: message}
}

func Warning(message string) *Notification {
	return &Notification{Level: enums.NotificationLevelWarning, Message: message}
}

func Failure(message string) *Notification {
	return &Notification{Level: enums.NotificationLevelError, Message: message}
}

// MutationApplied is the toast for a cart mutation the backend accepted.
func MutationApplied(kind enums.CartActionKind) *Notification {
	switch kind {
	case enums.CartActionAddToCart:
		return Success(MsgAdded)
	case enums.CartActionRemoveFromCart:
		return Success(MsgRemoved)
	default:
		return Success(MsgUpdated)
	}
}

// MutationFailed carries the backend's message when it is safe to show,
// otherwise the generic fallback. Internal and transport errors never leak.
func MutationFailed(err error) *Notification {
	return Failure(FailureMessage(err))
}

// FailureMessage picks the text shown for a failed mutation.
func FailureMessage(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || pkgerrors.IsRetryable(err) {
		return MsgGenericFailure
	}
	msg := strings.TrimSpace(typed.Message())
	if msg == "" {
		return MsgGenericFailure
	}
	return msg
}

// DeferFailed warns that a deferred action could not be stored.
func DeferFailed() *Notification {
	return Warning(MsgDeferFailed)
}

// ReplaySummary is the single toast emitted after a replay. It returns nil
// when nothing was replayed.
func ReplaySummary(applied, failed int) *Notification {
	switch {
	case applied+failed == 0:
		return nil
	case failed == 0:
		return Success(MsgReplayApplied)
	case applied == 0:
		return Failure(MsgReplayPartial)
	default:
		return Failure(fmt.Sprintf("%s (%d of %d failed)", MsgReplayPartial, failed, applied+failed))
	}
}
