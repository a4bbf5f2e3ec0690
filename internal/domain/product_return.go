package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnStatus is the processing state of a product return.
type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "pending"
	ReturnStatusReceived   ReturnStatus = "received"
	ReturnStatusInspecting ReturnStatus = "inspecting"
	ReturnStatusRejected   ReturnStatus = "rejected"
	ReturnStatusCompleted  ReturnStatus = "completed"
)

// ReturnStatuses lists every return status.
var ReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusReceived,
	ReturnStatusInspecting,
	ReturnStatusRejected,
	ReturnStatusCompleted,
}

// ParseReturnStatus converts s into a ReturnStatus.
func ParseReturnStatus(s string) (ReturnStatus, error) {
	for _, st := range ReturnStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus.WithMessage("unknown return status %q", s)
}

func (s ReturnStatus) Label(locale string) string {
	ro := locale == LocaleRO
	switch s {
	case ReturnStatusPending:
		return pick(ro, "În așteptare", "Pending")
	case ReturnStatusReceived:
		return pick(ro, "Recepționat", "Received")
	case ReturnStatusInspecting:
		return pick(ro, "În inspecție", "Inspecting")
	case ReturnStatusRejected:
		return pick(ro, "Respins", "Rejected")
	case ReturnStatusCompleted:
		return pick(ro, "Finalizat", "Completed")
	default:
		return string(s)
	}
}

func (s ReturnStatus) Color() string {
	switch s {
	case ReturnStatusPending:
		return "warning"
	case ReturnStatusReceived, ReturnStatusInspecting:
		return "info"
	case ReturnStatusRejected:
		return "danger"
	case ReturnStatusCompleted:
		return "success"
	default:
		return "secondary"
	}
}

// IsTerminal reports whether the status normally ends processing. The state
// machine still allows leaving it to correct mistakes.
func (s ReturnStatus) IsTerminal() bool {
	switch s {
	case ReturnStatusRejected, ReturnStatusCompleted:
		return true
	case ReturnStatusPending, ReturnStatusReceived, ReturnStatusInspecting:
		return false
	default:
		return false
	}
}

// ReturnReason is why the customer sends a product back.
type ReturnReason string

const (
	ReturnReasonDefective      ReturnReason = "defective"
	ReturnReasonWrongItem      ReturnReason = "wrong_item"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonDamaged        ReturnReason = "damaged_in_transit"
	ReturnReasonChangedMind    ReturnReason = "changed_mind"
	ReturnReasonOther          ReturnReason = "other"
)

var ReturnReasons = []ReturnReason{
	ReturnReasonDefective,
	ReturnReasonWrongItem,
	ReturnReasonNotAsDescribed,
	ReturnReasonDamaged,
	ReturnReasonChangedMind,
	ReturnReasonOther,
}

func ParseReturnReason(s string) (ReturnReason, error) {
	for _, r := range ReturnReasons {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ErrInvalidReturnReason.WithMessage("unknown return reason %q", s)
}

func (r ReturnReason) Label(locale string) string {
	ro := locale == LocaleRO
	switch r {
	case ReturnReasonDefective:
		return pick(ro, "Produs defect", "Defective product")
	case ReturnReasonWrongItem:
		return pick(ro, "Produs greșit", "Wrong item")
	case ReturnReasonNotAsDescribed:
		return pick(ro, "Nu corespunde descrierii", "Not as described")
	case ReturnReasonDamaged:
		return pick(ro, "Deteriorat la transport", "Damaged in transit")
	case ReturnReasonChangedMind:
		return pick(ro, "M-am răzgândit", "Changed my mind")
	case ReturnReasonOther:
		return pick(ro, "Alt motiv", "Other")
	default:
		return string(r)
	}
}

// ProductReturn is a customer request to send back part of an order line.
// RestockedAt is non-nil exactly while a stock increment for this return is
// applied and not reversed.
type ProductReturn struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrderID        uuid.UUID        `json:"order_id" db:"order_id"`
	OrderProductID uuid.UUID        `json:"order_product_id" db:"order_product_id"`
	ProductID      uuid.UUID        `json:"product_id" db:"product_id"`
	CustomerID     *uuid.UUID       `json:"customer_id,omitempty" db:"customer_id"`
	Quantity       int              `json:"quantity" db:"quantity"`
	Reason         ReturnReason     `json:"return_reason" db:"return_reason"`
	Status         ReturnStatus     `json:"status" db:"status"`
	RestockItem    bool             `json:"restock_item" db:"restock_item"`
	RestockedAt    *time.Time       `json:"restocked_at,omitempty" db:"restocked_at"`
	RefundAmount   *decimal.Decimal `json:"refund_amount,omitempty" db:"refund_amount"`
	Comment        string           `json:"comment,omitempty" db:"comment"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// IsRestocked reports whether stock is currently credited for this return.
func (r *ProductReturn) IsRestocked() bool {
	return r.RestockedAt != nil
}
