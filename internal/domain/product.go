package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType distinguishes stock-carrying products from grouping products.
type ProductType string

const (
	ProductTypeSimple       ProductType = "simple"
	ProductTypeConfigurable ProductType = "configurable"
	ProductTypeVariant      ProductType = "variant"
)

// ParseProductType validates a stored or requested product type.
func ParseProductType(s string) (ProductType, error) {
	switch t := ProductType(s); t {
	case ProductTypeSimple, ProductTypeConfigurable, ProductTypeVariant:
		return t, nil
	default:
		return "", fmt.Errorf("unknown product type %q", s)
	}
}

// Purchasable reports whether products of this type carry stock and can be
// ordered directly.
func (t ProductType) Purchasable() bool {
	switch t {
	case ProductTypeSimple, ProductTypeVariant:
		return true
	case ProductTypeConfigurable:
		return false
	default:
		return false
	}
}

// ProductStatus is the catalog visibility of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a catalog entry. BasePrice and tier prices are denominated in
// the base currency.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Type          ProductType     `json:"type" db:"type"`
	ParentID      *uuid.UUID      `json:"parent_id,omitempty" db:"parent_id"`
	SKU           string          `json:"sku" db:"sku"`
	Name          string          `json:"name" db:"name"`
	BasePrice     decimal.Decimal `json:"base_price" db:"base_price"`
	VatIncluded   bool            `json:"vat_included" db:"vat_included"`
	VatRate       decimal.Decimal `json:"vat_rate" db:"vat_rate"`
	StockQuantity int             `json:"stock_quantity" db:"stock_quantity"`
	Status        ProductStatus   `json:"status" db:"status"`
	Tiers         []PriceTier     `json:"tiers,omitempty"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the product is visible in the catalog.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// CheckPurchasable returns nil when the product can be put in a cart.
func (p *Product) CheckPurchasable() error {
	if !p.Type.Purchasable() {
		return ErrProductNotPurchasable.WithMessage("product %s is %s and cannot be purchased directly", p.SKU, p.Type)
	}
	if !p.IsActive() {
		return ErrProductUnavailable.WithMessage("product %s is not active", p.SKU)
	}
	if p.StockQuantity <= 0 {
		return ErrInsufficientStock.WithMessage("product %s is out of stock", p.SKU)
	}
	return nil
}

// PriceTier is a quantity breakpoint. A nil CustomerGroupID applies to every
// group that has no tiers of its own.
type PriceTier struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	CustomerGroupID *uuid.UUID      `json:"customer_group_id,omitempty" db:"customer_group_id"`
	MinQuantity     int             `json:"min_quantity" db:"min_quantity"`
	Price           decimal.Decimal `json:"price" db:"price"`
}
