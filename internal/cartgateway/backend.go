package cartgateway

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// Backend is the authoritative cart store. Every call carries the caller's
// identity token.
type Backend interface {
	ListItems(ctx context.Context, token string, weddingID int64) ([]types.CartItem, error)
	CreateItem(ctx context.Context, token string, in types.CartItemUpsert) (types.CartItem, error)
	UpdateItem(ctx context.Context, token string, id uuid.UUID, patch types.CartItemPatch) (types.CartItem, error)
	DeleteItem(ctx context.Context, token string, id uuid.UUID) error
	Summary(ctx context.Context, token string, weddingID int64) (types.CartSummary, error)
}

// IdentityProvider returns the current identity token, or false when the
// caller is not authenticated.
type IdentityProvider func(ctx context.Context) (token string, ok bool)

// Redirector builds the URL that sends the user to authentication.
type Redirector interface {
	AuthRedirect(ctx context.Context) string
}

// ReplayIntent marks a login redirect whose completion must trigger a replay.
const ReplayIntent = "cart_replay"

// LoginRedirect points at the login page and asks it to come back to
// ReturnPath with the replay intent set.
type LoginRedirect struct {
	LoginURL   string
	ReturnPath string
}

func (r LoginRedirect) AuthRedirect(context.Context) string {
	target := strings.TrimSpace(r.LoginURL)
	if target == "" {
		target = "/login"
	}
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/login"}
	}
	q := u.Query()
	if r.ReturnPath != "" {
		q.Set("return_to", r.ReturnPath)
	}
	q.Set("intent", ReplayIntent)
	u.RawQuery = q.Encode()
	return u.String()
}
