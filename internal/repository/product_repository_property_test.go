package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"teomarket/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// Creating and retrieving a product preserves attributes and tiers.
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	groupRepo := NewCustomerGroupRepository(testDB)

	b2c, err := groupRepo.FindByCode(context.Background(), domain.CustomerGroupB2C)
	if err != nil {
		t.Fatalf("Seeded B2C group missing: %v", err)
	}

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, priceCents int64, stock int, tierCents int64) bool {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Microsecond)

			product := &domain.Product{
				ID:            uuid.New(),
				Type:          domain.ProductTypeSimple,
				SKU:           "SKU-" + uuid.NewString(),
				Name:          name,
				BasePrice:     decimal.New(priceCents, -2),
				VatIncluded:   true,
				VatRate:       decimal.NewFromInt(19),
				StockQuantity: stock,
				Status:        domain.ProductStatusActive,
				Tiers: []domain.PriceTier{
					{CustomerGroupID: &b2c.ID, MinQuantity: 1, Price: decimal.New(priceCents, -2)},
					{CustomerGroupID: &b2c.ID, MinQuantity: 10, Price: decimal.New(tierCents, -2)},
					{MinQuantity: 5, Price: decimal.New(tierCents, -2)},
				},
				CreatedAt: now,
				UpdatedAt: now,
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name || retrieved.SKU != product.SKU {
				t.Logf("FAIL: identity mismatch")
				return false
			}
			if !retrieved.BasePrice.Equal(product.BasePrice) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.BasePrice, retrieved.BasePrice)
				return false
			}
			if retrieved.StockQuantity != stock || retrieved.Type != domain.ProductTypeSimple {
				return false
			}
			if len(retrieved.Tiers) != 3 {
				t.Logf("FAIL: expected 3 tiers, got %d", len(retrieved.Tiers))
				return false
			}
			// ordered by min quantity
			if retrieved.Tiers[0].MinQuantity != 1 || retrieved.Tiers[1].MinQuantity != 5 || retrieved.Tiers[2].MinQuantity != 10 {
				return false
			}
			if retrieved.Tiers[1].CustomerGroupID != nil {
				t.Logf("FAIL: shared tier should have no group")
				return false
			}

			_, _ = testDB.Exec("DELETE FROM products WHERE id = $1", product.ID)
			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.Int64Range(1, 999999),
		gen.IntRange(0, 1000),
		gen.Int64Range(1, 999999),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// A conditional decrement never drives stock negative.
func TestProperty_DecrementStockNeverOversells(t *testing.T) {
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("decrement succeeds exactly when stock suffices", prop.ForAll(
		func(stock int, quantity int) bool {
			ctx := context.Background()
			product := createTestProduct(t, stock)
			defer func() { _, _ = testDB.Exec("DELETE FROM products WHERE id = $1", product.ID) }()

			err := productRepo.DecrementStock(ctx, product.ID, quantity)

			after, findErr := productRepo.FindByID(ctx, product.ID)
			if findErr != nil {
				return false
			}

			if quantity <= stock {
				return err == nil && after.StockQuantity == stock-quantity
			}
			return errors.Is(err, domain.ErrInsufficientStock) && after.StockQuantity == stock
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 25),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductStockAdjustments(t *testing.T) {
	ctx := context.Background()
	productRepo := NewProductRepository(testDB)
	product := createTestProduct(t, 3)

	if err := productRepo.IncrementStock(ctx, product.ID, 4); err != nil {
		t.Fatalf("IncrementStock failed: %v", err)
	}
	got, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.StockQuantity != 7 {
		t.Errorf("expected stock 7, got %d", got.StockQuantity)
	}

	if err := productRepo.IncrementStock(ctx, uuid.New(), 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if err := productRepo.DecrementStock(ctx, uuid.New(), 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound for unknown product, got %v", err)
	}
	if err := productRepo.DecrementStock(ctx, product.ID, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestProductCreateRejectsVariantWithoutParent(t *testing.T) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:        uuid.New(),
		Type:      domain.ProductTypeVariant,
		SKU:       "VAR-" + uuid.NewString()[:8],
		Name:      "Tricou M",
		BasePrice: decimal.NewFromInt(50),
		VatRate:   decimal.NewFromInt(19),
		Status:    domain.ProductStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := NewProductRepository(testDB).Create(context.Background(), product)
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error for orphan variant, got %v", err)
	}
}
