package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefunded        OrderStatus = "refunded"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAwaitingPayment,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// ParseOrderStatus converts s into an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus.WithMessage("unknown order status %q", s)
}

// Label returns the customer-facing name in the given locale ("ro" or "en").
func (s OrderStatus) Label(locale string) string {
	ro := locale == LocaleRO
	switch s {
	case OrderStatusPending:
		return pick(ro, "În așteptare", "Pending")
	case OrderStatusAwaitingPayment:
		return pick(ro, "Așteaptă plata", "Awaiting payment")
	case OrderStatusConfirmed:
		return pick(ro, "Confirmată", "Confirmed")
	case OrderStatusProcessing:
		return pick(ro, "În procesare", "Processing")
	case OrderStatusShipped:
		return pick(ro, "Expediată", "Shipped")
	case OrderStatusDelivered:
		return pick(ro, "Livrată", "Delivered")
	case OrderStatusCancelled:
		return pick(ro, "Anulată", "Cancelled")
	case OrderStatusRefunded:
		return pick(ro, "Rambursată", "Refunded")
	default:
		return string(s)
	}
}

// Color is the badge colour used by the back-office.
func (s OrderStatus) Color() string {
	switch s {
	case OrderStatusPending, OrderStatusAwaitingPayment:
		return "warning"
	case OrderStatusConfirmed, OrderStatusProcessing:
		return "info"
	case OrderStatusShipped:
		return "primary"
	case OrderStatusDelivered:
		return "success"
	case OrderStatusCancelled:
		return "danger"
	case OrderStatusRefunded:
		return "secondary"
	default:
		return "secondary"
	}
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusAwaitingPayment || next == OrderStatusConfirmed || next == OrderStatusCancelled
	case OrderStatusAwaitingPayment:
		return next == OrderStatusConfirmed || next == OrderStatusCancelled
	case OrderStatusConfirmed:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	case OrderStatusDelivered:
		return next == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusRefunded:
		return false
	default:
		return false
	}
}

// PaymentMethod selects the initial order status.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// ParsePaymentMethod converts s into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return m, nil
	default:
		return "", NewValidation("invalid_payment_method", fmt.Sprintf("unknown payment method %q", s))
	}
}

// InitialOrderStatus returns the status a freshly placed order starts in.
func (m PaymentMethod) InitialOrderStatus() OrderStatus {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer:
		return OrderStatusAwaitingPayment
	case PaymentMethodCashOnDelivery:
		return OrderStatusPending
	default:
		return OrderStatusPending
	}
}

// Address is a shipping or billing address snapshot.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Company    string `json:"company,omitempty"`
	VatNumber  string `json:"vat_number,omitempty"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	County     string `json:"county,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone,omitempty"`
}

// Order is immutable after creation except for Status and IsPaid. Amounts are
// in CurrencyCode and were computed once at placement.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	CustomerID      *uuid.UUID      `json:"customer_id,omitempty" db:"customer_id"`
	CartID          uuid.UUID       `json:"cart_id" db:"cart_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	IsPaid          bool            `json:"is_paid" db:"is_paid"`
	CurrencyCode    string          `json:"currency_code" db:"currency_code"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	VatTotal        decimal.Decimal `json:"vat_total" db:"vat_total"`
	Total           decimal.Decimal `json:"total" db:"total"`
	PaymentMethod   PaymentMethod   `json:"payment_method" db:"payment_method"`
	Email           string          `json:"email" db:"email"`
	ShippingAddress Address         `json:"shipping_address" db:"shipping_address"`
	BillingAddress  Address         `json:"billing_address" db:"billing_address"`
	Products        []OrderProduct  `json:"products"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Line returns the order line with the given id.
func (o *Order) Line(orderProductID uuid.UUID) (*OrderProduct, bool) {
	for i := range o.Products {
		if o.Products[i].ID == orderProductID {
			return &o.Products[i], true
		}
	}
	return nil, false
}

// OrderProduct snapshots a purchased line, decoupled from live catalog data.
type OrderProduct struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	Name         string          `json:"name" db:"name"`
	SKU          string          `json:"sku" db:"sku"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
	CurrencyCode string          `json:"currency_code" db:"currency_code"`
}
