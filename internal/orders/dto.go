package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
)

// OrderItemDTO is one frozen order line. Price is the snapshot taken at
// checkout; Sweet reflects the current catalog entry and may be nil.
type OrderItemDTO struct {
	ID       uuid.UUID        `json:"id"`
	OrderID  uuid.UUID        `json:"orderId"`
	SweetID  uuid.UUID        `json:"sweetId"`
	Quantity int              `json:"quantity"`
	Price    float64          `json:"price"`
	Sweet    *sweets.SweetDTO `json:"sweet"`
}

// OrderDTO is the public representation of an order.
type OrderDTO struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"userId"`
	Total     float64           `json:"total"`
	Status    enums.OrderStatus `json:"status"`
	Items     []*OrderItemDTO   `json:"items"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ListResult is one page of a user's order history.
type ListResult struct {
	Orders     []*OrderDTO     `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// FromModel maps an order with preloaded items.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]*OrderItemDTO, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items = append(items, &OrderItemDTO{
			ID:       item.ID,
			OrderID:  item.OrderID,
			SweetID:  item.SweetID,
			Quantity: item.Quantity,
			Price:    item.Price.InexactFloat64(),
			Sweet:    sweets.FromModel(item.Sweet),
		})
	}
	return &OrderDTO{
		ID:        o.ID,
		UserID:    o.UserID,
		Total:     o.Total.InexactFloat64(),
		Status:    o.Status,
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
