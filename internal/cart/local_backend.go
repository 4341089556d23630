package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/auth"
	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// LocalBackend serves the cart gateway from the in-process service. The
// identity token is verified the same way the HTTP API verifies it.
type LocalBackend struct {
	svc Service
	jwt config.JWTConfig
}

func NewLocalBackend(svc Service, jwtCfg config.JWTConfig) (*LocalBackend, error) {
	if svc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required for local cart backend")
	}
	return &LocalBackend{svc: svc, jwt: jwtCfg}, nil
}

func (b *LocalBackend) owner(token string) (uuid.UUID, error) {
	claims, err := auth.ParseAccessToken(b.jwt, token)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid identity token")
	}
	return claims.UserID, nil
}

func (b *LocalBackend) ListItems(ctx context.Context, token string, weddingID int64) ([]types.CartItem, error) {
	owner, err := b.owner(token)
	if err != nil {
		return nil, err
	}
	return b.svc.ListItems(ctx, owner, weddingID)
}

func (b *LocalBackend) CreateItem(ctx context.Context, token string, in types.CartItemUpsert) (types.CartItem, error) {
	owner, err := b.owner(token)
	if err != nil {
		return types.CartItem{}, err
	}
	return b.svc.UpsertItem(ctx, owner, in)
}

func (b *LocalBackend) UpdateItem(ctx context.Context, token string, id uuid.UUID, patch types.CartItemPatch) (types.CartItem, error) {
	owner, err := b.owner(token)
	if err != nil {
		return types.CartItem{}, err
	}
	return b.svc.UpdateItem(ctx, owner, id, patch)
}

func (b *LocalBackend) DeleteItem(ctx context.Context, token string, id uuid.UUID) error {
	owner, err := b.owner(token)
	if err != nil {
		return err
	}
	return b.svc.DeleteItem(ctx, owner, id)
}

func (b *LocalBackend) Summary(ctx context.Context, token string, weddingID int64) (types.CartSummary, error) {
	owner, err := b.owner(token)
	if err != nil {
		return types.CartSummary{}, err
	}
	return b.svc.Summary(ctx, owner, weddingID)
}
