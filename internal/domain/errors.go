package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so callers can choose a response
// without inspecting messages.
type ErrorKind int

const (
	// KindValidation is a user-correctable problem (bad quantity, insufficient stock).
	KindValidation ErrorKind = iota + 1
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindConsistency is a business-rule violation such as converting an
	// already converted cart.
	KindConsistency
	// KindTransient is an infrastructure failure (database unavailable).
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConsistency:
		return "consistency"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the core for every expected failure.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same kind and code, so a
// detailed error still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

func NewValidation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NewNotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func NewConsistency(code, message string) *Error {
	return &Error{Kind: KindConsistency, Code: code, Message: message}
}

// NewTransient wraps an infrastructure failure.
func NewTransient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Code: "infrastructure_unavailable", Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsConsistency(err error) bool { return KindOf(err) == KindConsistency }
func IsTransient(err error) bool   { return KindOf(err) == KindTransient }

// Shared domain errors.
var (
	ErrCurrencyNotFound      = NewNotFound("currency_not_found", "currency not found")
	ErrProductNotFound       = NewNotFound("product_not_found", "product not found")
	ErrCustomerGroupNotFound = NewNotFound("customer_group_not_found", "customer group not found")
	ErrCartNotFound          = NewNotFound("cart_not_found", "cart not found")
	ErrCartItemNotFound      = NewNotFound("cart_item_not_found", "item not in cart")
	ErrOrderNotFound         = NewNotFound("order_not_found", "order not found")
	ErrOrderProductNotFound  = NewNotFound("order_product_not_found", "order line not found")
	ErrReturnNotFound        = NewNotFound("return_not_found", "return not found")

	ErrInvalidQuantity      = NewValidation("invalid_quantity", "quantity must be at least 1")
	ErrInsufficientStock    = NewValidation("insufficient_stock", "insufficient stock")
	ErrProductUnavailable   = NewValidation("product_unavailable", "product is not available for purchase")
	ErrUnknownCurrency      = NewValidation("unknown_currency", "unknown currency code")
	ErrEmptyCart            = NewValidation("empty_cart", "cart is empty")
	ErrReturnQuantityExceed = NewValidation("return_quantity_exceeded", "return quantity exceeds the quantity still returnable")
	ErrOrderNotReturnable   = NewValidation("order_not_returnable", "only delivered orders accept returns")
	ErrInvalidStatus        = NewValidation("invalid_status", "unknown status")
	ErrInvalidReturnReason  = NewValidation("invalid_return_reason", "unknown return reason")

	ErrProductNotPurchasable   = NewConsistency("product_not_purchasable", "product type cannot be purchased directly")
	ErrCartNotActive           = NewConsistency("cart_not_active", "cart is not active")
	ErrInvalidStatusTransition = NewConsistency("invalid_status_transition", "status transition not allowed")
	ErrCartOwnerMismatch       = NewConsistency("cart_owner_mismatch", "cart does not belong to the requester")
)
