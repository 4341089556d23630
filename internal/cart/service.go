package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/weddingplanner-backend/internal/cartstatus"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db/models"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// Service exposes the authoritative cart operations. Every call is scoped to
// the owner extracted from the caller's identity.
type Service interface {
	ListItems(ctx context.Context, ownerID uuid.UUID, weddingID int64) ([]types.CartItem, error)
	UpsertItem(ctx context.Context, ownerID uuid.UUID, input types.CartItemUpsert) (types.CartItem, error)
	UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, patch types.CartItemPatch) (types.CartItem, error)
	DeleteItem(ctx context.Context, ownerID, itemID uuid.UUID) error
	Summary(ctx context.Context, ownerID uuid.UUID, weddingID int64) (types.CartSummary, error)
}

type service struct {
	repo CartRepository
	tx   txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ListItems(ctx context.Context, ownerID uuid.UUID, weddingID int64) ([]types.CartItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner required")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID, weddingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	items := make([]types.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ToDTO())
	}
	return items, nil
}

// UpsertItem creates the item for (wedding_id, vendor_id) or refreshes the
// existing one in place. A status on an existing item is applied only when
// it moves the item forward; re-adding never demotes it.
func (s *service) UpsertItem(ctx context.Context, ownerID uuid.UUID, input types.CartItemUpsert) (types.CartItem, error) {
	if ownerID == uuid.Nil {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner required")
	}
	if input.WeddingID <= 0 || input.VendorID <= 0 {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "wedding_id and vendor_id are required")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Status == "" {
		input.Status = enums.CartItemStatusWishlisted
	}
	if !input.Status.IsValid() {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", input.Status))
	}

	item, err := s.upsertOnce(ctx, ownerID, input)
	if err != nil && pkgerrors.IsUniqueViolation(err) {
		// a concurrent create won the pair; the retry updates it in place
		item, err = s.upsertOnce(ctx, ownerID, input)
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return types.CartItem{}, typed
		}
		return types.CartItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart item")
	}
	return item.ToDTO(), nil
}

func (s *service) upsertOnce(ctx context.Context, ownerID uuid.UUID, input types.CartItemUpsert) (*models.CartItem, error) {
	var saved *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByPair(ctx, input.WeddingID, input.VendorID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing == nil {
			price := decimal.Zero
			if input.Price != nil {
				price = *input.Price
			}
			saved, err = repo.Create(ctx, &models.CartItem{
				OwnerID:     ownerID,
				WeddingID:   input.WeddingID,
				VendorID:    input.VendorID,
				Category:    strings.TrimSpace(input.Category),
				Price:       price,
				BookingDate: input.BookingDate,
				Status:      input.Status,
				VisitDate:   input.VisitDate,
				Notes:       input.Notes,
			})
			return err
		}
		if existing.OwnerID != ownerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another planner")
		}
		if category := strings.TrimSpace(input.Category); category != "" {
			existing.Category = category
		}
		if input.Price != nil {
			existing.Price = *input.Price
		}
		if input.BookingDate != nil {
			existing.BookingDate = input.BookingDate
		}
		if input.VisitDate != nil {
			existing.VisitDate = input.VisitDate
		}
		if input.Notes != nil {
			existing.Notes = input.Notes
		}
		if cartstatus.CanTransition(existing.Status, input.Status) {
			existing.Status = input.Status
		}
		saved, err = repo.Update(ctx, existing)
		return err
	})
	return saved, err
}

// UpdateItem applies a partial update. Status changes must follow the
// lifecycle; backward moves are rejected with STATE_CONFLICT.
func (s *service) UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, patch types.CartItemPatch) (types.CartItem, error) {
	if patch.IsEmpty() {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	var saved *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.owned(ctx, repo, ownerID, itemID)
		if err != nil {
			return err
		}
		if patch.Status != nil {
			if err := cartstatus.Validate(item.Status, *patch.Status); err != nil {
				return err
			}
			item.Status = *patch.Status
		}
		if patch.Category != nil {
			item.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.Price != nil {
			item.Price = *patch.Price
		}
		if patch.BookingDate != nil {
			item.BookingDate = patch.BookingDate
		}
		if patch.VisitDate != nil {
			item.VisitDate = patch.VisitDate
		}
		if patch.Notes != nil {
			item.Notes = patch.Notes
		}
		saved, err = repo.Update(ctx, item)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return types.CartItem{}, err
	}
	return saved.ToDTO(), nil
}

func (s *service) DeleteItem(ctx context.Context, ownerID, itemID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.owned(ctx, repo, ownerID, itemID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		return nil
	})
}

// Summary aggregates one wedding's cart. The breakdown always lists every status.
func (s *service) Summary(ctx context.Context, ownerID uuid.UUID, weddingID int64) (types.CartSummary, error) {
	items, err := s.ListItems(ctx, ownerID, weddingID)
	if err != nil {
		return types.CartSummary{}, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return types.CartSummary{
		WeddingID:       weddingID,
		TotalItems:      len(items),
		TotalAmount:     total,
		StatusBreakdown: cartstatus.Breakdown(items),
	}, nil
}

func (s *service) owned(ctx context.Context, repo CartRepository, ownerID, itemID uuid.UUID) (*models.CartItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner required")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another planner")
	}
	return item, nil
}
