package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrencyCode is the pivot currency all stored prices and rates are relative to.
const BaseCurrencyCode = "RON"

// Currency is an exchange-rate row. Value is how many base-currency units one
// unit of this currency is worth, so the base currency always has Value 1.
type Currency struct {
	Code        string          `json:"code" db:"code"`
	Name        string          `json:"name" db:"name"`
	Value       decimal.Decimal `json:"value" db:"value"`
	SymbolLeft  string          `json:"symbol_left" db:"symbol_left"`
	SymbolRight string          `json:"symbol_right" db:"symbol_right"`
	Active      bool            `json:"active" db:"status"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// IsBase reports whether c is the conversion pivot.
func (c *Currency) IsBase() bool {
	return c.Code == BaseCurrencyCode
}
