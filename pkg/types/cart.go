package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
)

// CartPayload is the body of a cart mutation request, deferred or not.
// Empty optional fields mean "leave unchanged" for updates.
type CartPayload struct {
	ItemID      *uuid.UUID       `json:"item_id,omitempty"`
	VendorID    int64            `json:"vendor_id,omitempty" validate:"gte=0"`
	WeddingID   int64            `json:"wedding_id,omitempty" validate:"gte=0"`
	Category    string           `json:"category,omitempty" validate:"omitempty,max=64"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	BookingDate string           `json:"booking_date,omitempty"`
	Status      string           `json:"status,omitempty" validate:"omitempty,oneof=wishlisted visited selected booked"`
	VisitDate   *string          `json:"visit_date,omitempty"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CartItem is the wire view of a persisted cart entry.
type CartItem struct {
	ID          uuid.UUID            `json:"id"`
	WeddingID   int64                `json:"wedding_id"`
	VendorID    int64                `json:"vendor_id"`
	Category    string               `json:"category"`
	Price       decimal.Decimal      `json:"price"`
	BookingDate *time.Time           `json:"booking_date,omitempty"`
	Status      enums.CartItemStatus `json:"status"`
	VisitDate   *time.Time           `json:"visit_date,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// CartItemUpsert creates a cart entry or refreshes the one already held for
// the same (wedding_id, vendor_id) pair. A nil Price keeps the stored price
// and creates new entries at zero.
type CartItemUpsert struct {
	WeddingID   int64                `json:"wedding_id" validate:"required,gt=0"`
	VendorID    int64                `json:"vendor_id" validate:"required,gt=0"`
	Category    string               `json:"category" validate:"omitempty,max=64"`
	Price       *decimal.Decimal     `json:"price,omitempty"`
	BookingDate *time.Time           `json:"booking_date,omitempty"`
	Status      enums.CartItemStatus `json:"status,omitempty" validate:"omitempty,oneof=wishlisted visited selected booked"`
	VisitDate   *time.Time           `json:"visit_date,omitempty"`
	Notes       *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CartItemPatch is a partial update; nil fields are left unchanged.
type CartItemPatch struct {
	Category    *string               `json:"category,omitempty" validate:"omitempty,max=64"`
	Price       *decimal.Decimal      `json:"price,omitempty"`
	BookingDate *time.Time            `json:"booking_date,omitempty"`
	Status      *enums.CartItemStatus `json:"status,omitempty" validate:"omitempty,oneof=wishlisted visited selected booked"`
	VisitDate   *time.Time            `json:"visit_date,omitempty"`
	Notes       *string               `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CartItemPatch) IsEmpty() bool {
	return p.Category == nil && p.Price == nil && p.BookingDate == nil &&
		p.Status == nil && p.VisitDate == nil && p.Notes == nil
}

// CartSummary aggregates the cart of one wedding.
type CartSummary struct {
	WeddingID       int64                        `json:"wedding_id"`
	TotalItems      int                          `json:"total_items"`
	TotalAmount     decimal.Decimal              `json:"total_amount"`
	StatusBreakdown map[enums.CartItemStatus]int `json:"status_breakdown"`
}

// Validate checks the payload against the requirements of kind.
func (p CartPayload) Validate(kind enums.CartActionKind) error {
	details := map[string]string{}
	if !kind.IsValid() {
		details["kind"] = fmt.Sprintf("unknown action kind %q", kind)
	}
	hasPair := p.VendorID > 0 && p.WeddingID > 0
	switch kind {
	case enums.CartActionAddToCart:
		if p.VendorID <= 0 {
			details["vendor_id"] = "vendor_id is required"
		}
		if p.WeddingID <= 0 {
			details["wedding_id"] = "wedding_id is required"
		}
	case enums.CartActionRemoveFromCart, enums.CartActionUpdateCart:
		if p.ItemID == nil && !hasPair {
			details["item_id"] = "item_id or vendor_id with wedding_id is required"
		}
	}
	if p.Price != nil && p.Price.IsNegative() {
		details["price"] = "price must be non-negative"
	}
	if p.Status != "" {
		if _, err := enums.ParseCartItemStatus(p.Status); err != nil {
			details["status"] = err.Error()
		}
	}
	if p.BookingDate != "" {
		if _, err := ParseISOTime(p.BookingDate); err != nil {
			details["booking_date"] = err.Error()
		}
	}
	if p.VisitDate != nil && *p.VisitDate != "" {
		if _, err := ParseISOTime(*p.VisitDate); err != nil {
			details["visit_date"] = err.Error()
		}
	}
	if kind == enums.CartActionUpdateCart && p.patchFieldsEmpty() {
		details["payload"] = "update_cart needs at least one field to change"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart payload").WithDetails(details)
	}
	return nil
}

func (p CartPayload) patchFieldsEmpty() bool {
	return p.Category == "" && p.Price == nil && p.BookingDate == "" &&
		p.Status == "" && p.VisitDate == nil && p.Notes == nil
}

// ToUpsert converts a validated add payload. Status defaults to wishlisted.
func (p CartPayload) ToUpsert() (CartItemUpsert, error) {
	out := CartItemUpsert{
		WeddingID: p.WeddingID,
		VendorID:  p.VendorID,
		Category:  strings.TrimSpace(p.Category),
		Status:    enums.CartItemStatusWishlisted,
		Notes:     p.Notes,
	}
	if p.Price != nil {
		price := *p.Price
		out.Price = &price
	}
	if p.Status != "" {
		status, err := enums.ParseCartItemStatus(p.Status)
		if err != nil {
			return CartItemUpsert{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		out.Status = status
	}
	var err error
	if out.BookingDate, err = optionalTime(p.BookingDate); err != nil {
		return CartItemUpsert{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking_date")
	}
	if p.VisitDate != nil {
		if out.VisitDate, err = optionalTime(*p.VisitDate); err != nil {
			return CartItemUpsert{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visit_date")
		}
	}
	return out, nil
}

// ToPatch converts a validated update payload.
func (p CartPayload) ToPatch() (CartItemPatch, error) {
	var out CartItemPatch
	if category := strings.TrimSpace(p.Category); category != "" {
		out.Category = &category
	}
	if p.Price != nil {
		price := *p.Price
		out.Price = &price
	}
	if p.Status != "" {
		status, err := enums.ParseCartItemStatus(p.Status)
		if err != nil {
			return CartItemPatch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		out.Status = &status
	}
	var err error
	if out.BookingDate, err = optionalTime(p.BookingDate); err != nil {
		return CartItemPatch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking_date")
	}
	if p.VisitDate != nil {
		if out.VisitDate, err = optionalTime(*p.VisitDate); err != nil {
			return CartItemPatch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visit_date")
		}
	}
	out.Notes = p.Notes
	return out, nil
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseISOTime accepts an ISO-8601 date or date-time.
func ParseISOTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", value)
}

func optionalTime(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseISOTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Clone returns a deep copy so the original can no longer be mutated
// through shared pointers.
func (p CartPayload) Clone() CartPayload {
	out := p
	if p.ItemID != nil {
		id := *p.ItemID
		out.ItemID = &id
	}
	if p.Price != nil {
		price := *p.Price
		out.Price = &price
	}
	if p.VisitDate != nil {
		visit := *p.VisitDate
		out.VisitDate = &visit
	}
	if p.Notes != nil {
		notes := *p.Notes
		out.Notes = &notes
	}
	return out
}
