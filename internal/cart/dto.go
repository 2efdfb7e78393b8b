package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
)

// CartItemDTO is one cart line with its sweet attached.
type CartItemDTO struct {
	ID       uuid.UUID        `json:"id"`
	CartID   uuid.UUID        `json:"cartId"`
	SweetID  uuid.UUID        `json:"sweetId"`
	Quantity int              `json:"quantity"`
	Sweet    *sweets.SweetDTO `json:"sweet,omitempty"`
}

// CartDTO is the caller's cart. Total is informational; checkout recomputes
// it from current prices.
type CartDTO struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"userId"`
	Items     []*CartItemDTO `json:"items"`
	Total     float64        `json:"total"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AddItemInput is the add-to-cart payload after decoding.
type AddItemInput struct {
	SweetID  uuid.UUID
	Quantity int
}

func itemFromModel(item *models.CartItem) *CartItemDTO {
	if item == nil {
		return nil
	}
	return &CartItemDTO{
		ID:       item.ID,
		CartID:   item.CartID,
		SweetID:  item.SweetID,
		Quantity: item.Quantity,
		Sweet:    sweets.FromModel(item.Sweet),
	}
}

// FromModel maps a cart with preloaded items.
func FromModel(c *models.Cart) *CartDTO {
	if c == nil {
		return nil
	}
	total := decimal.Zero
	items := make([]*CartItemDTO, 0, len(c.Items))
	for i := range c.Items {
		item := &c.Items[i]
		items = append(items, itemFromModel(item))
		if item.Sweet != nil {
			total = total.Add(item.Sweet.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return &CartDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     items,
		Total:     total.InexactFloat64(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
