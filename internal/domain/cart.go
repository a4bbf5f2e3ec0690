package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartStatus is one-way: active -> converted.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

// Cart holds what a visitor intends to buy. Prices are never stored here.
type Cart struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	SessionID  string     `json:"session_id,omitempty" db:"session_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	Status     CartStatus `json:"status" db:"status"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the cart still accepts changes.
func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// Item returns the line for productID, if present.
func (c *Cart) Item(productID uuid.UUID) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// CartItem is one product line of a cart.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartOwner identifies whose cart an operation targets. An authenticated
// customer takes precedence over the anonymous session.
type CartOwner struct {
	SessionID  string
	CustomerID *uuid.UUID
}

// IsAnonymous reports whether the owner is only known by session.
func (o CartOwner) IsAnonymous() bool {
	return o.CustomerID == nil
}

// Owns reports whether cart belongs to o.
func (o CartOwner) Owns(cart *Cart) bool {
	if o.CustomerID != nil {
		return cart.CustomerID != nil && *cart.CustomerID == *o.CustomerID
	}
	return cart.CustomerID == nil && o.SessionID != "" && cart.SessionID == o.SessionID
}
