package enums

import "fmt"

// CartItemStatus is the planning lifecycle of a vendor in a wedding cart.
type CartItemStatus string

const (
	CartItemStatusWishlisted CartItemStatus = "wishlisted"
	CartItemStatusVisited    CartItemStatus = "visited"
	CartItemStatusSelected   CartItemStatus = "selected"
	CartItemStatusBooked     CartItemStatus = "booked"
)

// ordered by lifecycle position
var validCartItemStatuses = []CartItemStatus{
	CartItemStatusWishlisted,
	CartItemStatusVisited,
	CartItemStatusSelected,
	CartItemStatusBooked,
}

// CartItemStatuses returns every status in lifecycle order.
func CartItemStatuses() []CartItemStatus {
	out := make([]CartItemStatus, len(validCartItemStatuses))
	copy(out, validCartItemStatuses)
	return out
}

// String implements fmt.Stringer.
func (c CartItemStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CartItemStatus) IsValid() bool {
	for _, candidate := range validCartItemStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartItemStatus converts raw input into a CartItemStatus.
func ParseCartItemStatus(value string) (CartItemStatus, error) {
	for _, candidate := range validCartItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart item status %q", value)
}
