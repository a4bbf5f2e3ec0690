package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"teomarket/internal/domain"
	"teomarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// CheckoutRequest is the "submit order" input.
type CheckoutRequest struct {
	CartID          uuid.UUID
	Owner           domain.CartOwner
	CustomerGroupID *uuid.UUID
	Currency        string
	PaymentMethod   domain.PaymentMethod
	Email           string
	ShippingAddress domain.Address
	// BillingAddress defaults to the shipping address when nil.
	BillingAddress *domain.Address
}

// CheckoutService converts an active cart into an order.
type CheckoutService interface {
	Submit(ctx context.Context, req CheckoutRequest) (*domain.Order, error)
}

type checkoutService struct {
	store   repository.Store
	pricing PricingConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewCheckoutService(store repository.Store, pricingCfg PricingConfig, logger *zap.Logger) CheckoutService {
	return &checkoutService{
		store:   store,
		pricing: pricingCfg,
		logger:  logger.Named("checkout"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit places the order atomically: every product row is locked, stock is
// re-validated and decremented, lines are priced at submission time and the
// cart is converted. Any failure leaves cart, stock and orders untouched.
func (s *checkoutService) Submit(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	if _, err := domain.ParsePaymentMethod(string(req.PaymentMethod)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, domain.NewValidation("missing_email", "an email address is required")
	}

	book, err := s.pricing.loadPriceBook(ctx, s.store.Repositories().Currencies, req.Currency)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		cart, err := repos.Carts.FindByIDForUpdate(ctx, req.CartID)
		if err != nil {
			return err
		}
		if !req.Owner.Owns(cart) {
			return domain.ErrCartOwnerMismatch
		}
		if !cart.IsActive() {
			return domain.ErrCartNotActive.WithMessage("cart %s is %s", cart.ID, cart.Status)
		}
		if len(cart.Items) == 0 {
			return domain.ErrEmptyCart
		}

		// Lock in a stable order so concurrent checkouts cannot deadlock.
		items := append([]domain.CartItem(nil), cart.Items...)
		sort.Slice(items, func(i, j int) bool {
			return items[i].ProductID.String() < items[j].ProductID.String()
		})

		now := s.now()
		order = &domain.Order{
			ID:              uuid.New(),
			OrderNumber:     newOrderNumber(now),
			CustomerID:      req.Owner.CustomerID,
			CartID:          cart.ID,
			Status:          req.PaymentMethod.InitialOrderStatus(),
			CurrencyCode:    book.currency.Code,
			ExchangeRate:    book.currency.Value,
			Subtotal:        decimal.Zero,
			VatTotal:        decimal.Zero,
			Total:           decimal.Zero,
			PaymentMethod:   req.PaymentMethod,
			Email:           req.Email,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.ShippingAddress,
			Products:        make([]domain.OrderProduct, 0, len(items)),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if req.BillingAddress != nil {
			order.BillingAddress = *req.BillingAddress
		}

		for _, item := range items {
			product, err := repos.Products.FindByIDForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := product.CheckPurchasable(); err != nil {
				return err
			}
			if product.StockQuantity < item.Quantity {
				return domain.ErrInsufficientStock.WithMessage(
					"requested %d of %s but only %d in stock", item.Quantity, product.SKU, product.StockQuantity)
			}

			info, err := book.engine.PriceInfo(product, book.request(item.Quantity, req.CustomerGroupID))
			if err != nil {
				return err
			}

			if err := repos.Products.DecrementStock(ctx, product.ID, item.Quantity); err != nil {
				return err
			}

			net, vat, gross := splitVat(info.LineTotalDisplay, product.VatIncluded, product.VatRate, book.precision)
			order.Subtotal = order.Subtotal.Add(net)
			order.VatTotal = order.VatTotal.Add(vat)
			order.Total = order.Total.Add(gross)

			order.Products = append(order.Products, domain.OrderProduct{
				ID:           uuid.New(),
				OrderID:      order.ID,
				ProductID:    product.ID,
				Name:         product.Name,
				SKU:          product.SKU,
				Quantity:     item.Quantity,
				UnitPrice:    info.UnitPriceDisplay,
				TotalPrice:   info.LineTotalDisplay,
				CurrencyCode: book.currency.Code,
			})
		}

		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		return repos.Carts.MarkConverted(ctx, cart.ID)
	})
	if err != nil {
		fields := []zap.Field{zap.String("cart_id", req.CartID.String()), zap.Error(err)}
		switch domain.KindOf(err) {
		case domain.KindValidation, domain.KindNotFound:
			s.logger.Debug("Checkout rejected", fields...)
		default:
			s.logger.Error("Checkout failed", fields...)
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("currency", order.CurrencyCode),
		zap.String("total", order.Total.StringFixed(book.precision)),
	)
	return order, nil
}

// splitVat returns net, VAT and gross of a line total. Gross-priced lines
// have VAT extracted, net-priced lines have it added.
func splitVat(lineTotal decimal.Decimal, vatIncluded bool, rate decimal.Decimal, precision int32) (net, vat, gross decimal.Decimal) {
	factor := decimal.NewFromInt(1).Add(rate.Div(hundred))
	if vatIncluded {
		gross = lineTotal
		net = lineTotal.Div(factor).Round(precision)
		return net, gross.Sub(net), gross
	}
	net = lineTotal
	vat = lineTotal.Mul(rate).Div(hundred).Round(precision)
	return net, vat, net.Add(vat)
}

func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "TM-" + at.Format("20060102") + "-" + suffix
}
