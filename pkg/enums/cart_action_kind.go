package enums

import "fmt"

// CartActionKind names the cart mutation a planner requested.
type CartActionKind string

const (
	CartActionAddToCart      CartActionKind = "add_to_cart"
	CartActionRemoveFromCart CartActionKind = "remove_from_cart"
	CartActionUpdateCart     CartActionKind = "update_cart"
)

var validCartActionKinds = []CartActionKind{
	CartActionAddToCart,
	CartActionRemoveFromCart,
	CartActionUpdateCart,
}

// String implements fmt.Stringer.
func (c CartActionKind) String() string {
	return string(c)
}

// IsValid reports whether the kind is known.
func (c CartActionKind) IsValid() bool {
	for _, candidate := range validCartActionKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartActionKind converts raw input into a CartActionKind.
func ParseCartActionKind(value string) (CartActionKind, error) {
	for _, candidate := range validCartActionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart action kind %q", value)
}
