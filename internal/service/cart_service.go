package service

import (
	"context"
	"errors"
	"time"

	"teomarket/internal/currency"
	"teomarket/internal/domain"
	"teomarket/internal/pricing"
	"teomarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartLine is a cart item priced at read time.
type CartLine struct {
	ProductID uuid.UUID          `json:"product_id"`
	SKU       string             `json:"sku"`
	Name      string             `json:"name"`
	Quantity  int                `json:"quantity"`
	Price     *pricing.PriceInfo `json:"price"`
}

// CartView is the priced view of the owner's active cart. Cart is nil when
// the owner has not added anything yet.
type CartView struct {
	Cart      *domain.Cart    `json:"cart"`
	Currency  string          `json:"currency"`
	Lines     []CartLine      `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Formatted string          `json:"subtotal_formatted"`
}

// CartService manages active carts. Prices are never stored on a cart.
type CartService interface {
	GetCart(ctx context.Context, owner domain.CartOwner, currencyCode string, groupID *uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID) (*domain.Cart, error)
	// ActiveCartID resolves the owner's active cart without pricing it.
	ActiveCartID(ctx context.Context, owner domain.CartOwner) (uuid.UUID, error)
	// MergeOnLogin folds the session's anonymous cart into the customer's
	// active cart. Running it again for the same session changes nothing.
	MergeOnLogin(ctx context.Context, sessionID string, customerID uuid.UUID) (*domain.Cart, error)
	LoginHook
}

type cartService struct {
	store   repository.Store
	pricing PricingConfig
	logger  *zap.Logger
}

func NewCartService(store repository.Store, pricingCfg PricingConfig, logger *zap.Logger) CartService {
	return &cartService{store: store, pricing: pricingCfg, logger: logger.Named("cart")}
}

func (s *cartService) GetCart(ctx context.Context, owner domain.CartOwner, currencyCode string, groupID *uuid.UUID) (*CartView, error) {
	repos := s.store.Repositories()
	book, err := s.pricing.loadPriceBook(ctx, repos.Currencies, currencyCode)
	if err != nil {
		return nil, err
	}

	view := &CartView{Currency: book.currency.Code, Lines: []CartLine{}, Subtotal: decimal.Zero}

	cart, err := findActiveCart(ctx, repos.Carts, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			view.Formatted = currency.Format(view.Subtotal, book.currency, book.precision)
			return view, nil
		}
		return nil, err
	}
	view.Cart = cart

	for _, item := range cart.Items {
		product, err := repos.Products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		info, err := book.engine.PriceInfo(product, book.request(item.Quantity, groupID))
		if err != nil {
			return nil, err
		}
		view.Lines = append(view.Lines, CartLine{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     info,
		})
		view.Subtotal = view.Subtotal.Add(info.LineTotalDisplay)
	}
	view.Formatted = currency.Format(view.Subtotal, book.currency, book.precision)

	return view, nil
}

// AddItem validates the product against the live catalog and adds quantity
// to the owner's active cart, creating the cart on first use.
func (s *cartService) AddItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		product, err := repos.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := product.CheckPurchasable(); err != nil {
			return err
		}

		cart, err = findActiveCart(ctx, repos.Carts, owner)
		if errors.Is(err, domain.ErrCartNotFound) {
			cart, err = createCart(ctx, repos.Carts, owner)
		}
		if err != nil {
			return err
		}

		if err := repos.Carts.AddItem(ctx, cart.ID, productID, quantity); err != nil {
			return err
		}
		cart, err = repos.Carts.FindByID(ctx, cart.ID)
		return err
	})
	if err != nil {
		s.logFailure("add item", err, zap.String("product_id", productID.String()))
		return nil, err
	}
	return cart, nil
}

func (s *cartService) UpdateItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		var err error
		cart, err = findActiveCart(ctx, repos.Carts, owner)
		if err != nil {
			return err
		}
		product, err := repos.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := product.CheckPurchasable(); err != nil {
			return err
		}
		if err := repos.Carts.SetItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
			return err
		}
		cart, err = repos.Carts.FindByID(ctx, cart.ID)
		return err
	})
	if err != nil {
		s.logFailure("update item", err, zap.String("product_id", productID.String()))
		return nil, err
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, owner domain.CartOwner, productID uuid.UUID) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		var err error
		cart, err = findActiveCart(ctx, repos.Carts, owner)
		if err != nil {
			return err
		}
		if err := repos.Carts.RemoveItem(ctx, cart.ID, productID); err != nil {
			return err
		}
		cart, err = repos.Carts.FindByID(ctx, cart.ID)
		return err
	})
	if err != nil {
		s.logFailure("remove item", err, zap.String("product_id", productID.String()))
		return nil, err
	}
	return cart, nil
}

func (s *cartService) ActiveCartID(ctx context.Context, owner domain.CartOwner) (uuid.UUID, error) {
	if err := validateOwner(owner); err != nil {
		return uuid.Nil, err
	}
	cart, err := findActiveCart(ctx, s.store.Repositories().Carts, owner)
	if err != nil {
		return uuid.Nil, err
	}
	return cart.ID, nil
}

func (s *cartService) MergeOnLogin(ctx context.Context, sessionID string, customerID uuid.UUID) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, nil
	}

	var merged *domain.Cart
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		// The lock serialises concurrent logins from the same session; the
		// loser finds the cart already merged or adopted.
		sessionCart, err := repos.Carts.FindActiveBySessionForUpdate(ctx, sessionID)
		if errors.Is(err, domain.ErrCartNotFound) {
			// Nothing left to merge; a repeated login lands here.
			merged, err = repos.Carts.FindActiveByCustomer(ctx, customerID)
			if errors.Is(err, domain.ErrCartNotFound) {
				merged, err = nil, nil
			}
			return err
		}
		if err != nil {
			return err
		}

		customerCart, err := repos.Carts.FindActiveByCustomer(ctx, customerID)
		if errors.Is(err, domain.ErrCartNotFound) {
			if err := repos.Carts.AssignCustomer(ctx, sessionCart.ID, customerID); err != nil {
				return err
			}
			merged, err = repos.Carts.FindByID(ctx, sessionCart.ID)
			return err
		}
		if err != nil {
			return err
		}

		for _, item := range sessionCart.Items {
			if err := repos.Carts.AddItem(ctx, customerCart.ID, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := repos.Carts.Delete(ctx, sessionCart.ID); err != nil {
			return err
		}

		merged, err = repos.Carts.FindByID(ctx, customerCart.ID)
		return err
	})
	if err != nil {
		s.logger.Error("Cart merge failed",
			zap.String("session_id", sessionID),
			zap.String("customer_id", customerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if merged != nil {
		s.logger.Info("Cart merged on login",
			zap.String("customer_id", customerID.String()),
			zap.String("cart_id", merged.ID.String()),
			zap.Int("items", len(merged.Items)),
		)
	}
	return merged, nil
}

// AfterLogin implements LoginHook.
func (s *cartService) AfterLogin(ctx context.Context, sessionID string, user *domain.User) error {
	_, err := s.MergeOnLogin(ctx, sessionID, user.ID)
	return err
}

func (s *cartService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindNotFound:
		s.logger.Debug("Cart request rejected", fields...)
	default:
		s.logger.Error("Cart operation failed", fields...)
	}
}

func validateOwner(owner domain.CartOwner) error {
	if owner.CustomerID == nil && owner.SessionID == "" {
		return domain.NewValidation("missing_cart_owner", "a session id or an authenticated customer is required")
	}
	return nil
}

func findActiveCart(ctx context.Context, carts repository.CartRepository, owner domain.CartOwner) (*domain.Cart, error) {
	if owner.CustomerID != nil {
		return carts.FindActiveByCustomer(ctx, *owner.CustomerID)
	}
	if owner.SessionID == "" {
		return nil, domain.ErrCartNotFound
	}
	return carts.FindActiveBySession(ctx, owner.SessionID)
}

func createCart(ctx context.Context, carts repository.CartRepository, owner domain.CartOwner) (*domain.Cart, error) {
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:         uuid.New(),
		SessionID:  owner.SessionID,
		CustomerID: owner.CustomerID,
		Status:     domain.CartStatusActive,
		Items:      []domain.CartItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := carts.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
