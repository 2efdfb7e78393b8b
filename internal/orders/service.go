package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/internal/audit"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/metrics"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
)

const (
	orderNotFoundMessage = "Order not found"
	auditTrailLimit      = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutMetrics interface {
	ObserveCheckout(outcome string, duration time.Duration)
	AddUnitsSold(n int)
}

// Service exposes order placement and the caller's order history.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, page, limit int) (*ListResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AuditTrail(ctx context.Context, orderID uuid.UUID) ([]audit.Entry, error)
}

// ServiceParams bundles the dependencies of the order service. Stock, Audit,
// Metrics, Logger and Now fall back to working defaults when unset.
type ServiceParams struct {
	Tx      txRunner
	Orders  Repository
	Carts   cart.CartRepository
	Stock   stockDecrementer
	Audit   audit.Store
	Metrics checkoutMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	tx      txRunner
	orders  Repository
	carts   cart.CartRepository
	stock   stockDecrementer
	audit   audit.Store
	metrics checkoutMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	svc := &service{
		tx:      params.Tx,
		orders:  params.Orders,
		carts:   params.Carts,
		stock:   params.Stock,
		audit:   params.Audit,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Now,
	}
	if svc.stock == nil {
		svc.stock = catalogStock{}
	}
	if svc.audit == nil {
		svc.audit = audit.Nop{}
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewOrderMetrics(nil)
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, page, limit int) (*ListResult, error) {
	params := pagination.Normalize(page, limit)

	var (
		rows  []models.Order
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.orders.ListByUser(gctx, userID, params)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.orders.CountByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	out := make([]*OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return &ListResult{Orders: out, Pagination: pagination.NewMeta(params, total)}, nil
}

// Get returns the order only to its owner.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Unauthorized")
	}
	return FromModel(order), nil
}

// AuditTrail lists the recorded events for an order, newest first.
func (s *service) AuditTrail(ctx context.Context, orderID uuid.UUID) ([]audit.Entry, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByEntity(ctx, orderID.String(), auditTrailLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read audit trail")
	}
	return entries, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, orderNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}
