package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

// ActionLogEntry is one deferred cart mutation held for a device slot.
// Entries of a slot are ordered by Seq.
type ActionLogEntry struct {
	Slot       string               `gorm:"column:slot;type:varchar(128);primaryKey"`
	Seq        int64                `gorm:"column:seq;primaryKey;autoIncrement:false"`
	ActionID   uuid.UUID            `gorm:"column:action_id;type:uuid;not null"`
	Kind       enums.CartActionKind `gorm:"column:kind;type:varchar(32);not null"`
	Payload    types.CartPayload    `gorm:"column:payload;type:text;serializer:json;not null"`
	EnqueuedAt time.Time            `gorm:"column:enqueued_at;not null"`
	ExpiresAt  *time.Time           `gorm:"column:expires_at;index"`
}

func (ActionLogEntry) TableName() string { return "action_log_entries" }
