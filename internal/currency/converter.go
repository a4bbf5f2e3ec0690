// Package currency converts and formats amounts using a snapshot of the
// currencies table. Every conversion pivots through the base currency.
package currency

import (
	"sort"
	"strings"

	"teomarket/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimals used for display amounts.
const DefaultPrecision int32 = 2

// Table is an immutable snapshot of exchange rates keyed by currency code.
type Table struct {
	base       string
	currencies map[string]*domain.Currency
}

// NewTable builds a lookup table. Currencies with a non-positive rate are
// skipped since nothing can be converted through them.
func NewTable(base string, currencies []*domain.Currency) *Table {
	t := &Table{
		base:       strings.ToUpper(base),
		currencies: make(map[string]*domain.Currency, len(currencies)),
	}
	for _, c := range currencies {
		if c == nil || !c.Value.IsPositive() {
			continue
		}
		cp := *c
		cp.Code = strings.ToUpper(cp.Code)
		if cp.Code == t.base {
			cp.Value = decimal.NewFromInt(1)
		}
		t.currencies[cp.Code] = &cp
	}
	return t
}

// Base returns the pivot currency code.
func (t *Table) Base() string {
	return t.base
}

// Lookup returns the currency with the given code.
func (t *Table) Lookup(code string) (*domain.Currency, error) {
	c, ok := t.currencies[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrCurrencyNotFound.WithMessage("currency %q not found", code)
	}
	return c, nil
}

// Rate returns the rate of code relative to the base currency.
func (t *Table) Rate(code string) (decimal.Decimal, error) {
	c, err := t.Lookup(code)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Value, nil
}

// Active lists the active currencies ordered by code.
func (t *Table) Active() []*domain.Currency {
	out := make([]*domain.Currency, 0, len(t.currencies))
	for _, c := range t.currencies {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Convert converts amount from one currency to another and rounds the result
// half-up to precision decimals. Identical codes still round.
func (t *Table) Convert(amount decimal.Decimal, from, to string, precision int32) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount.Round(precision), nil
	}

	src, err := t.Lookup(from)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := t.Lookup(to)
	if err != nil {
		return decimal.Zero, err
	}

	var out decimal.Decimal
	switch {
	case src.Code == t.base:
		out = amount.Div(dst.Value)
	case dst.Code == t.base:
		out = amount.Mul(src.Value)
	default:
		out = amount.Mul(src.Value).Div(dst.Value)
	}
	return out.Round(precision), nil
}

// FromBase converts a base-currency amount into code.
func (t *Table) FromBase(amount decimal.Decimal, code string, precision int32) (decimal.Decimal, error) {
	return t.Convert(amount, t.base, code, precision)
}

// Format renders amount with the currency's symbol. The left symbol wins if
// both are configured.
func Format(amount decimal.Decimal, c *domain.Currency, precision int32) string {
	s := amount.StringFixed(precision)
	switch {
	case c == nil:
		return s
	case c.SymbolLeft != "":
		return c.SymbolLeft + s
	case c.SymbolRight != "":
		return s + " " + strings.TrimSpace(c.SymbolRight)
	default:
		return s + " " + c.Code
	}
}

// Format renders amount in the currency identified by code.
func (t *Table) Format(amount decimal.Decimal, code string, precision int32) (string, error) {
	c, err := t.Lookup(code)
	if err != nil {
		return "", err
	}
	return Format(amount, c, precision), nil
}
