package enums

import "fmt"

// BadgeColor is the palette token used when rendering a cart status badge.
type BadgeColor string

const (
	BadgeColorGray  BadgeColor = "gray"
	BadgeColorBlue  BadgeColor = "blue"
	BadgeColorAmber BadgeColor = "amber"
	BadgeColorGreen BadgeColor = "green"
)

var validBadgeColors = []BadgeColor{
	BadgeColorGray,
	BadgeColorBlue,
	BadgeColorAmber,
	BadgeColorGreen,
}

// String implements fmt.Stringer.
func (b BadgeColor) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BadgeColor.
func (b BadgeColor) IsValid() bool {
	for _, candidate := range validBadgeColors {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBadgeColor converts raw input into a BadgeColor.
func ParseBadgeColor(value string) (BadgeColor, error) {
	for _, candidate := range validBadgeColors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid badge color %q", value)
}
