package service

import (
	"context"
	"errors"
	"fmt"

	"teomarket/internal/currency"
	"teomarket/internal/domain"
	"teomarket/internal/pricing"
	"teomarket/internal/repository"

	"github.com/google/uuid"
)

// PricingConfig configures how services price product lines.
type PricingConfig struct {
	BaseCurrency    string
	DefaultCurrency string
	DefaultGroupID  uuid.UUID
	Precision       int32
}

// priceBook is the pricing state of one operation: the rate table as
// currently persisted and the display currency the caller asked for.
type priceBook struct {
	engine    *pricing.Engine
	currency  *domain.Currency
	precision int32
}

// loadPriceBook reads the current rates and resolves the requested display
// currency. Unknown or inactive codes are a caller error.
func (c PricingConfig) loadPriceBook(ctx context.Context, currencies repository.CurrencyRepository, requested string) (*priceBook, error) {
	list, err := currencies.List(ctx)
	if err != nil {
		return nil, err
	}

	base := c.BaseCurrency
	if base == "" {
		base = domain.BaseCurrencyCode
	}
	table := currency.NewTable(base, list)

	code := requested
	if code == "" {
		code = c.DefaultCurrency
	}
	if code == "" {
		code = table.Base()
	}

	cur, err := table.Lookup(code)
	if err != nil {
		if errors.Is(err, domain.ErrCurrencyNotFound) {
			return nil, domain.ErrUnknownCurrency.WithMessage("unknown currency code %q", code)
		}
		return nil, err
	}
	if !cur.Active {
		return nil, domain.ErrUnknownCurrency.WithMessage("currency %s is not offered", cur.Code)
	}

	precision := c.Precision
	if precision < 0 {
		precision = currency.DefaultPrecision
	}

	return &priceBook{
		engine:    pricing.NewEngine(table, c.DefaultGroupID, precision),
		currency:  cur,
		precision: precision,
	}, nil
}

func (b *priceBook) request(quantity int, groupID *uuid.UUID) pricing.Request {
	return pricing.Request{Currency: b.currency.Code, Quantity: quantity, CustomerGroupID: groupID}
}

// CatalogService exposes product pricing to the storefront.
type CatalogService interface {
	ProductPrice(ctx context.Context, productID uuid.UUID, currencyCode string, quantity int, groupID *uuid.UUID) (*pricing.PriceInfo, error)
	ProductTiers(ctx context.Context, productID uuid.UUID, currencyCode string, groupID *uuid.UUID) ([]pricing.TierInfo, error)
	Currencies(ctx context.Context) ([]*domain.Currency, error)
}

type catalogService struct {
	store   repository.Store
	pricing PricingConfig
}

func NewCatalogService(store repository.Store, pricingCfg PricingConfig) CatalogService {
	return &catalogService{store: store, pricing: pricingCfg}
}

func (s *catalogService) ProductPrice(ctx context.Context, productID uuid.UUID, currencyCode string, quantity int, groupID *uuid.UUID) (*pricing.PriceInfo, error) {
	repos := s.store.Repositories()
	book, err := s.pricing.loadPriceBook(ctx, repos.Currencies, currencyCode)
	if err != nil {
		return nil, err
	}
	product, err := repos.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return book.engine.PriceInfo(product, book.request(quantity, groupID))
}

func (s *catalogService) ProductTiers(ctx context.Context, productID uuid.UUID, currencyCode string, groupID *uuid.UUID) ([]pricing.TierInfo, error) {
	repos := s.store.Repositories()
	book, err := s.pricing.loadPriceBook(ctx, repos.Currencies, currencyCode)
	if err != nil {
		return nil, err
	}
	product, err := repos.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return book.engine.PriceTiers(product, book.request(1, groupID))
}

// Currencies lists the currencies a visitor may display prices in.
func (s *catalogService) Currencies(ctx context.Context) ([]*domain.Currency, error) {
	list, err := s.store.Repositories().Currencies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}
	base := s.pricing.BaseCurrency
	if base == "" {
		base = domain.BaseCurrencyCode
	}
	return currency.NewTable(base, list).Active(), nil
}
