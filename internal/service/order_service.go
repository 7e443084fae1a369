package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

// OrderService manages JP Sistemas orders. Orders do not feed the dashboard,
// so no cache is involved.
type OrderService struct {
	base
}

func NewOrderService(stores StoreResolver, cfg *config.Config, log logrus.FieldLogger) *OrderService {
	return &OrderService{base: newBase(stores, nil, cfg, log)}
}

func (s *OrderService) Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.Order, error) {
	if !domain.ValidClientName(req.ClientName) {
		return nil, customError.WrapInvalidClientName()
	}

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ClientName: strings.TrimSpace(req.ClientName),
		Product:    strings.TrimSpace(req.Product),
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		Status:     req.Status,
		Notes:      req.Notes,
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	order.Recalculate()

	if err := store.Orders.Create(ctx, order); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := store.Orders.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (*domain.Order, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	order, err := store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapOrderNotFound(id))
	}
	return order, nil
}

func (s *OrderService) Update(ctx context.Context, id int64, req *domain.UpdateOrderRequest) (*domain.Order, error) {
	if req.ClientName != nil && !domain.ValidClientName(*req.ClientName) {
		return nil, customError.WrapInvalidClientName()
	}

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	order, err := store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapOrderNotFound(id))
	}

	if req.ClientName != nil {
		order.ClientName = strings.TrimSpace(*req.ClientName)
	}
	if req.Product != nil {
		if strings.TrimSpace(*req.Product) == "" {
			return nil, customError.Validation("Produto é obrigatório", nil)
		}
		order.Product = strings.TrimSpace(*req.Product)
	}
	if req.Quantity != nil {
		order.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		order.UnitPrice = *req.UnitPrice
	}
	setString(&order.Status, req.Status)
	setString(&order.Notes, req.Notes)
	order.Recalculate()

	if err := store.Orders.Update(ctx, order); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	store, err := s.store(ctx)
	if err != nil {
		return err
	}

	if _, err := store.Orders.GetByID(ctx, id); err != nil {
		return lookupError(err, customError.WrapOrderNotFound(id))
	}
	if err := store.Orders.Delete(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}
