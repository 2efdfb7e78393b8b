package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is a (sweet, quantity) line inside a cart. Each sweet appears at
// most once per cart.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_sweet,priority:1"`
	SweetID   uuid.UUID `gorm:"column:sweet_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_sweet,priority:2"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Sweet     *Sweet    `gorm:"foreignKey:SweetID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
