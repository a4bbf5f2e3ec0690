package service

import (
	"context"
	"time"

	"teomarket/internal/domain"
	"teomarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnRequest is the "create return" input.
type ReturnRequest struct {
	OrderID        uuid.UUID
	OrderProductID uuid.UUID
	Quantity       int
	Reason         domain.ReturnReason
	RestockItem    bool
	Comment        string
}

// ReturnStatusUpdate is the admin input of a status change.
type ReturnStatusUpdate struct {
	Status       domain.ReturnStatus
	RefundAmount *decimal.Decimal
	Comment      *string
}

// ReturnService validates return requests and runs the return state machine.
type ReturnService interface {
	Create(ctx context.Context, actor Actor, req ReturnRequest) (*domain.ProductReturn, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.ProductReturn, error)
	ListForOrder(ctx context.Context, actor Actor, orderID uuid.UUID) ([]*domain.ProductReturn, error)
	// UpdateStatus applies a status change. Stock moves only when the return
	// crosses into or out of completed, at most once per crossing.
	UpdateStatus(ctx context.Context, id uuid.UUID, update ReturnStatusUpdate) (*domain.ProductReturn, error)
}

type returnService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewReturnService(store repository.Store, logger *zap.Logger) ReturnService {
	return &returnService{
		store:  store,
		logger: logger.Named("returns"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create records a return after checking ownership, delivery and the
// remaining returnable quantity of the line. The line row stays locked
// between the check and the insert.
func (s *returnService) Create(ctx context.Context, actor Actor, req ReturnRequest) (*domain.ProductReturn, error) {
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := domain.ParseReturnReason(string(req.Reason)); err != nil {
		return nil, err
	}

	var ret *domain.ProductReturn
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		order, err := repos.Orders.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if !actor.canAccess(order.CustomerID) {
			return domain.ErrOrderNotFound.WithMessage("order %s not found", req.OrderID)
		}
		if order.Status != domain.OrderStatusDelivered {
			return domain.ErrOrderNotReturnable.WithMessage("order %s is %s", order.OrderNumber, order.Status)
		}

		line, err := repos.Orders.FindOrderProductForUpdate(ctx, req.OrderProductID)
		if err != nil {
			return err
		}
		if line.OrderID != order.ID {
			return domain.ErrOrderProductNotFound
		}

		alreadyReturned, err := repos.Returns.SumQuantityByOrderProduct(ctx, line.ID)
		if err != nil {
			return err
		}
		if remaining := line.Quantity - alreadyReturned; req.Quantity > remaining {
			return domain.ErrReturnQuantityExceed.WithMessage(
				"requested %d but only %d of %d remain returnable", req.Quantity, max(remaining, 0), line.Quantity)
		}

		now := s.now()
		ret = &domain.ProductReturn{
			ID:             uuid.New(),
			OrderID:        order.ID,
			OrderProductID: line.ID,
			ProductID:      line.ProductID,
			CustomerID:     order.CustomerID,
			Quantity:       req.Quantity,
			Reason:         req.Reason,
			Status:         domain.ReturnStatusPending,
			RestockItem:    req.RestockItem,
			Comment:        req.Comment,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return repos.Returns.Create(ctx, ret)
	})
	if err != nil {
		s.logger.Debug("Return request rejected",
			zap.String("order_id", req.OrderID.String()),
			zap.String("order_product_id", req.OrderProductID.String()),
			zap.Int("quantity", req.Quantity),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Return created",
		zap.String("return_id", ret.ID.String()),
		zap.String("order_id", ret.OrderID.String()),
		zap.Int("quantity", ret.Quantity),
	)
	return ret, nil
}

func (s *returnService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.ProductReturn, error) {
	ret, err := s.store.Repositories().Returns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(ret.CustomerID) {
		return nil, domain.ErrReturnNotFound.WithMessage("return %s not found", id)
	}
	return ret, nil
}

func (s *returnService) ListForOrder(ctx context.Context, actor Actor, orderID uuid.UUID) ([]*domain.ProductReturn, error) {
	repos := s.store.Repositories()
	order, err := repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(order.CustomerID) {
		return nil, domain.ErrOrderNotFound.WithMessage("order %s not found", orderID)
	}
	return repos.Returns.ListByOrder(ctx, orderID)
}

func (s *returnService) UpdateStatus(ctx context.Context, id uuid.UUID, update ReturnStatusUpdate) (*domain.ProductReturn, error) {
	if _, err := domain.ParseReturnStatus(string(update.Status)); err != nil {
		return nil, err
	}
	if update.RefundAmount != nil && update.RefundAmount.IsNegative() {
		return nil, domain.NewValidation("invalid_refund", "refund amount cannot be negative")
	}

	var ret *domain.ProductReturn
	var stockDelta int
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		var err error
		ret, err = repos.Returns.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		oldStatus := ret.Status
		newStatus := update.Status
		now := s.now()
		changed := false

		if oldStatus == domain.ReturnStatusCompleted && newStatus != domain.ReturnStatusCompleted && ret.IsRestocked() {
			if err := repos.Products.DecrementStock(ctx, ret.ProductID, ret.Quantity); err != nil {
				return err
			}
			ret.RestockedAt = nil
			stockDelta = -ret.Quantity
			changed = true
		}

		if newStatus == domain.ReturnStatusCompleted && oldStatus != domain.ReturnStatusCompleted && ret.RestockItem && !ret.IsRestocked() {
			if err := repos.Products.IncrementStock(ctx, ret.ProductID, ret.Quantity); err != nil {
				return err
			}
			ret.RestockedAt = &now
			stockDelta = ret.Quantity
			changed = true
		}

		if newStatus != oldStatus {
			ret.Status = newStatus
			changed = true
		}
		if update.RefundAmount != nil {
			amount := *update.RefundAmount
			ret.RefundAmount = &amount
			changed = true
		}
		if update.Comment != nil {
			ret.Comment = *update.Comment
			changed = true
		}

		if !changed {
			return nil
		}
		ret.UpdatedAt = now
		return repos.Returns.Update(ctx, ret)
	})
	if err != nil {
		s.logger.Error("Return status update failed",
			zap.String("return_id", id.String()),
			zap.String("status", string(update.Status)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Return status applied",
		zap.String("return_id", id.String()),
		zap.String("status", string(ret.Status)),
		zap.Int("stock_delta", stockDelta),
	)
	return ret, nil
}
