package service

import (
	"context"

	"teomarket/internal/domain"
	"teomarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of an order or return operation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// canAccess reports whether the actor may see a record owned by customerID.
// Records of other customers are reported as not found.
func (a Actor) canAccess(customerID *uuid.UUID) bool {
	if a.IsAdmin {
		return true
	}
	return customerID != nil && *customerID == a.UserID
}

// OrderService reads orders and drives their status.
type OrderService interface {
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewOrderService(store repository.Store, logger *zap.Logger) OrderService {
	return &orderService{store: store, logger: logger.Named("orders")}
}

func (s *orderService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error) {
	order, err := s.store.Repositories().Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(order.CustomerID) {
		return nil, domain.ErrOrderNotFound.WithMessage("order %s not found", id)
	}
	return order, nil
}

func (s *orderService) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	return s.store.Repositories().Orders.ListByCustomer(ctx, customerID)
}

// UpdateStatus moves an order along the transition table.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if _, err := domain.ParseOrderStatus(string(status)); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		current, err := repos.Orders.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(status) {
			s.logger.Error("Rejected order status transition",
				zap.String("order_id", id.String()),
				zap.String("order_number", current.OrderNumber),
				zap.String("from", string(current.Status)),
				zap.String("to", string(status)),
			)
			return domain.ErrInvalidStatusTransition.WithMessage("order %s cannot move from %s to %s", current.OrderNumber, current.Status, status)
		}
		if err := repos.Orders.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		order, err = repos.Orders.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", string(status)),
	)
	return order, nil
}

// MarkPaid flags the order as paid. A pending or awaiting-payment order is
// confirmed at the same time.
func (s *orderService) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		current, err := repos.Orders.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case domain.OrderStatusCancelled, domain.OrderStatusRefunded:
			return domain.NewConsistency("order_closed", "a "+string(current.Status)+" order cannot be paid")
		}
		if !current.IsPaid {
			if err := repos.Orders.MarkPaid(ctx, id); err != nil {
				return err
			}
		}
		if current.Status == domain.OrderStatusPending || current.Status == domain.OrderStatusAwaitingPayment {
			if err := repos.Orders.UpdateStatus(ctx, id, domain.OrderStatusConfirmed); err != nil {
				return err
			}
		}
		order, err = repos.Orders.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order marked paid", zap.String("order_id", id.String()))
	return order, nil
}
