package cartstatus

import "github.com/angelmondragon/weddingplanner-backend/pkg/enums"

// Badge is how a status is rendered.
type Badge struct {
	Status string           `json:"status"`
	Label  string           `json:"label"`
	Color  enums.BadgeColor `json:"color"`
	Icon   string           `json:"icon"`
}

var badges = map[enums.CartItemStatus]Badge{
	enums.CartItemStatusWishlisted: {Status: "wishlisted", Label: "Wishlisted", Color: enums.BadgeColorGray, Icon: "heart"},
	enums.CartItemStatusVisited:    {Status: "visited", Label: "Visited", Color: enums.BadgeColorBlue, Icon: "eye"},
	enums.CartItemStatusSelected:   {Status: "selected", Label: "Selected", Color: enums.BadgeColorAmber, Icon: "check-circle"},
	enums.CartItemStatusBooked:     {Status: "booked", Label: "Booked", Color: enums.BadgeColorGreen, Icon: "calendar-check"},
}

// UnknownBadge is returned for any status outside the lifecycle.
var UnknownBadge = Badge{Status: "unknown", Label: "Unknown", Color: enums.BadgeColorGray, Icon: "help-circle"}

func BadgeFor(status string) Badge {
	if badge, ok := badges[enums.CartItemStatus(status)]; ok {
		return badge
	}
	return UnknownBadge
}

// Badges returns the badge of every status in lifecycle order followed by
// the unknown fallback.
func Badges() []Badge {
	out := make([]Badge, 0, len(badges)+1)
	for _, status := range enums.CartItemStatuses() {
		out = append(out, badges[status])
	}
	return append(out, UnknownBadge)
}
