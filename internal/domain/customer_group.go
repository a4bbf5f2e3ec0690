package domain

import (
	"time"

	"github.com/google/uuid"
)

// Well-known customer group codes.
const (
	CustomerGroupB2C         = "B2C"
	CustomerGroupB2BStandard = "B2B_STANDARD"
)

// CustomerGroup is a pricing bucket deciding which tier list applies.
type CustomerGroup struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
