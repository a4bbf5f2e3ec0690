package service

import (
	"testing"
	"time"

	"teomarket/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	b2cGroupID = uuid.MustParse("5b0c4a8e-2f5c-4b8e-9d1a-000000000001")
	b2bGroupID = uuid.MustParse("5b0c4a8e-2f5c-4b8e-9d1a-000000000002")
)

func testPricing() PricingConfig {
	return PricingConfig{
		BaseCurrency:    "RON",
		DefaultCurrency: "RON",
		DefaultGroupID:  b2cGroupID,
		Precision:       2,
	}
}

// newSeededStore returns a store holding the currencies and customer groups
// every service test prices against. GBP is known but not offered.
func newSeededStore() *memStore {
	store := newMemStore()
	for _, c := range []domain.Currency{
		{Code: "RON", Name: "Leu românesc", Value: decimal.NewFromInt(1), SymbolRight: "lei", Active: true},
		{Code: "EUR", Name: "Euro", Value: decimal.RequireFromString("4.9764"), SymbolRight: "€", Active: true},
		{Code: "USD", Name: "US Dollar", Value: decimal.RequireFromString("4.5812"), SymbolLeft: "$", Active: true},
		{Code: "GBP", Name: "Pound sterling", Value: decimal.RequireFromString("5.8120"), SymbolLeft: "£", Active: false},
	} {
		cur := c
		store.state.currencies[cur.Code] = &cur
	}
	store.state.groups[b2cGroupID] = &domain.CustomerGroup{ID: b2cGroupID, Code: domain.CustomerGroupB2C, Name: "Persoane fizice"}
	store.state.groups[b2bGroupID] = &domain.CustomerGroup{ID: b2bGroupID, Code: domain.CustomerGroupB2BStandard, Name: "Firme"}
	return store
}

func seedProduct(t *testing.T, store *memStore, sku string, price string, stock int) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Product{
		ID:            uuid.New(),
		Type:          domain.ProductTypeSimple,
		SKU:           sku,
		Name:          "Produs " + sku,
		BasePrice:     decimal.RequireFromString(price),
		VatIncluded:   true,
		VatRate:       decimal.NewFromInt(19),
		StockQuantity: stock,
		Status:        domain.ProductStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	store.state.products[p.ID] = p
	return p
}

func stockOf(store *memStore, productID uuid.UUID) int {
	return store.state.products[productID].StockQuantity
}

func setStock(store *memStore, productID uuid.UUID, stock int) {
	store.state.products[productID].StockQuantity = stock
}

func testShippingAddress() domain.Address {
	return domain.Address{
		Name:       "Ion Popescu",
		Street:     "Str. Republicii 10",
		City:       "Cluj-Napoca",
		County:     "Cluj",
		PostalCode: "400015",
		Country:    "RO",
		Phone:      "+40740000000",
	}
}

// seedDeliveredOrder stores a delivered order for customerID with one line
// of quantity units of product.
func seedDeliveredOrder(store *memStore, customerID uuid.UUID, product *domain.Product, quantity int) (*domain.Order, *domain.OrderProduct) {
	now := time.Now().UTC()
	cust := customerID
	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     "TM-20260101-" + uuid.NewString()[:8],
		CustomerID:      &cust,
		CartID:          uuid.New(),
		Status:          domain.OrderStatusDelivered,
		IsPaid:          true,
		CurrencyCode:    "RON",
		ExchangeRate:    decimal.NewFromInt(1),
		PaymentMethod:   domain.PaymentMethodCard,
		Email:           "client@teomarket.ro",
		ShippingAddress: testShippingAddress(),
		BillingAddress:  testShippingAddress(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	total := product.BasePrice.Mul(decimal.NewFromInt(int64(quantity)))
	order.Products = []domain.OrderProduct{{
		ID:           uuid.New(),
		OrderID:      order.ID,
		ProductID:    product.ID,
		Name:         product.Name,
		SKU:          product.SKU,
		Quantity:     quantity,
		UnitPrice:    product.BasePrice,
		TotalPrice:   total,
		CurrencyCode: "RON",
	}}
	order.Total = total
	store.state.orders[order.ID] = order
	return order, &order.Products[0]
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
