package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// CartItem persists a vendor a planner is considering for a wedding.
// At most one row exists per (wedding_id, vendor_id).
type CartItem struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index:idx_cart_items_owner_wedding,priority:1"`
	WeddingID   int64                `gorm:"column:wedding_id;not null;uniqueIndex:idx_cart_items_wedding_vendor,priority:1;index:idx_cart_items_owner_wedding,priority:2"`
	VendorID    int64                `gorm:"column:vendor_id;not null;uniqueIndex:idx_cart_items_wedding_vendor,priority:2"`
	Category    string               `gorm:"column:category;type:varchar(64);not null;default:''"`
	Price       decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	BookingDate *time.Time           `gorm:"column:booking_date"`
	Status      enums.CartItemStatus `gorm:"column:status;type:varchar(16);not null;default:'wishlisted'"`
	VisitDate   *time.Time           `gorm:"column:visit_date"`
	Notes       *string              `gorm:"column:notes"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string { return "cart_items" }

// BeforeCreate assigns the id client side so sqlite and postgres behave alike.
func (c *CartItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ToDTO maps the row to its wire view.
func (c CartItem) ToDTO() types.CartItem {
	return types.CartItem{
		ID:          c.ID,
		WeddingID:   c.WeddingID,
		VendorID:    c.VendorID,
		Category:    c.Category,
		Price:       c.Price,
		BookingDate: c.BookingDate,
		Status:      c.Status,
		VisitDate:   c.VisitDate,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
