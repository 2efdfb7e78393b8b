package orders

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/internal/audit"
	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/metrics"
)

type stockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, sweetID uuid.UUID, qty int) error
}

// catalogStock decrements through the sweets repository bound to the
// checkout transaction.
type catalogStock struct{}

func (catalogStock) Decrement(ctx context.Context, tx *gorm.DB, sweetID uuid.UUID, qty int) error {
	return sweets.NewRepository(tx).DecrementStock(ctx, sweetID, qty)
}

// PlaceOrder converts the user's cart into an order. Order creation, every
// stock decrement and the cart reset commit together or not at all.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID) (*OrderDTO, error) {
	start := s.now()
	order, units, err := s.placeOrder(ctx, userID)
	s.metrics.ObserveCheckout(checkoutOutcome(err), s.now().Sub(start))
	if err != nil {
		return nil, err
	}
	s.metrics.AddUnitsSold(units)

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order placed")
	s.recordPlaced(ctx, userID, order)

	return FromModel(order), nil
}

func (s *service) placeOrder(ctx context.Context, userID uuid.UUID) (*models.Order, int, error) {
	var (
		result *models.Order
		units  int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		record, err := cartRepo.FindByUser(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if record == nil || len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "Cart is empty")
		}

		lines := append([]models.CartItem(nil), record.Items...)
		// Stable row order keeps concurrent checkouts from deadlocking on
		// the same sweets.
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].SweetID.String() < lines[j].SweetID.String()
		})

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			if line.Sweet == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Sweet not found").
					WithDetails(map[string]any{"sweetId": line.SweetID})
			}
			price := line.Sweet.Price
			total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				SweetID:  line.SweetID,
				Quantity: line.Quantity,
				Price:    price,
			})
		}

		order, err := ordersRepo.CreateOrder(ctx, &models.Order{UserID: userID, Total: total})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}

		for _, line := range lines {
			if err := s.stock.Decrement(ctx, tx, line.SweetID, line.Quantity); err != nil {
				return stockError(err, line)
			}
			units += line.Quantity
		}

		if _, err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		result, err = ordersRepo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return result, units, nil
}

func stockError(err error, line models.CartItem) error {
	switch {
	case errors.Is(err, sweets.ErrInsufficientStock):
		details := map[string]any{"sweetId": line.SweetID, "requested": line.Quantity}
		if line.Sweet != nil {
			details["name"] = line.Sweet.Name
		}
		return pkgerrors.Wrap(pkgerrors.CodeOutOfStock, err, "Insufficient stock").WithDetails(details)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "Sweet not found").
			WithDetails(map[string]any{"sweetId": line.SweetID})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
	}
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomePlaced
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return metrics.OutcomeEmptyCart
	case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
		return metrics.OutcomeOutOfStock
	default:
		return metrics.OutcomeFailed
	}
}

func (s *service) recordPlaced(ctx context.Context, userID uuid.UUID, order *models.Order) {
	lines := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, map[string]any{
			"sweet_id": item.SweetID.String(),
			"quantity": item.Quantity,
			"price":    item.Price.String(),
		})
	}
	entry := audit.NewEntry(audit.ActionOrderPlaced, order.ID, userID, map[string]any{
		"total": order.Total.String(),
		"items": lines,
	})
	entry.CreatedAt = order.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logg.Error(ctx, "audit write failed", err)
	}
}
