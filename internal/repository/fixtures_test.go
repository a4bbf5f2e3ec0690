package repository

import (
	"context"
	"testing"
	"time"

	"teomarket/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func createTestProduct(t *testing.T, stock int) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New(),
		Type:          domain.ProductTypeSimple,
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          "Cafea boabe 1kg",
		BasePrice:     decimal.RequireFromString("89.90"),
		VatIncluded:   true,
		VatRate:       decimal.NewFromInt(19),
		StockQuantity: stock,
		Status:        domain.ProductStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := NewProductRepository(testDB).Create(context.Background(), product); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

func createTestCustomer(t *testing.T) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        uuid.NewString()[:8] + "@teomarket.ro",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		FirstName:    "Ana",
		LastName:     "Popescu",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewUserRepository(testDB).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func createTestCart(t *testing.T, sessionID string, customerID *uuid.UUID) *domain.Cart {
	t.Helper()
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:         uuid.New(),
		SessionID:  sessionID,
		CustomerID: customerID,
		Status:     domain.CartStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := NewCartRepository(testDB).Create(context.Background(), cart); err != nil {
		t.Fatalf("Failed to create cart: %v", err)
	}
	return cart
}

func testAddress() domain.Address {
	return domain.Address{
		Name:       "Ana Popescu",
		Street:     "Str. Lipscani 10",
		City:       "București",
		County:     "Sector 3",
		PostalCode: "030031",
		Country:    "RO",
		Phone:      "+40721000000",
	}
}

// createTestOrder persists a delivered order with one line for product.
func createTestOrder(t *testing.T, product *domain.Product, customerID *uuid.UUID, quantity int) *domain.Order {
	t.Helper()
	sessionID := ""
	if customerID == nil {
		sessionID = "sess-" + uuid.NewString()[:8]
	}
	cart := createTestCart(t, sessionID, customerID)
	now := time.Now().UTC()
	unit := decimal.RequireFromString("89.90")
	total := unit.Mul(decimal.NewFromInt(int64(quantity)))
	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     "TM-" + now.Format("20060102") + "-" + uuid.NewString()[:8],
		CustomerID:      customerID,
		CartID:          cart.ID,
		Status:          domain.OrderStatusDelivered,
		CurrencyCode:    domain.BaseCurrencyCode,
		ExchangeRate:    decimal.NewFromInt(1),
		Subtotal:        total,
		VatTotal:        decimal.Zero,
		Total:           total,
		PaymentMethod:   domain.PaymentMethodCashOnDelivery,
		Email:           "ana@teomarket.ro",
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
		Products: []domain.OrderProduct{{
			ID:           uuid.New(),
			ProductID:    product.ID,
			Name:         product.Name,
			SKU:          product.SKU,
			Quantity:     quantity,
			UnitPrice:    unit,
			TotalPrice:   total,
			CurrencyCode: domain.BaseCurrencyCode,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := NewOrderRepository(testDB).Create(context.Background(), order); err != nil {
		t.Fatalf("Failed to create order: %v", err)
	}
	return order
}
