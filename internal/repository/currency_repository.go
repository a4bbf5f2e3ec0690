package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"teomarket/internal/domain"

	"github.com/shopspring/decimal"
)

// CurrencyRepository reads the rate table maintained by the exchange-rate
// refresh process.
type CurrencyRepository interface {
	List(ctx context.Context) ([]*domain.Currency, error)
	FindByCode(ctx context.Context, code string) (*domain.Currency, error)
	UpdateRate(ctx context.Context, code string, value decimal.Decimal) error
}

type currencyRepository struct {
	db DBTX
}

func NewCurrencyRepository(db DBTX) CurrencyRepository {
	return &currencyRepository{db: db}
}

const currencyColumns = `code, name, value, symbol_left, symbol_right, status, updated_at`

func scanCurrency(row interface{ Scan(...interface{}) error }) (*domain.Currency, error) {
	c := &domain.Currency{}
	var status string
	if err := row.Scan(&c.Code, &c.Name, &c.Value, &c.SymbolLeft, &c.SymbolRight, &status, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Active = status == "active"
	return c, nil
}

// List returns every currency, active or not, ordered by code.
func (r *currencyRepository) List(ctx context.Context) ([]*domain.Currency, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+currencyColumns+` FROM currencies ORDER BY code ASC`)
	if err != nil {
		return nil, wrapErr("list currencies", err)
	}
	defer rows.Close()

	currencies := []*domain.Currency{}
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, wrapErr("scan currency", err)
		}
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate currencies", err)
	}
	return currencies, nil
}

func (r *currencyRepository) FindByCode(ctx context.Context, code string) (*domain.Currency, error) {
	code = strings.ToUpper(code)
	c, err := scanCurrency(r.db.QueryRowContext(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCurrencyNotFound.WithMessage("currency %s not found", code)
		}
		return nil, wrapErr("find currency", err)
	}
	return c, nil
}

// UpdateRate stores a new rate for a non-base currency.
func (r *currencyRepository) UpdateRate(ctx context.Context, code string, value decimal.Decimal) error {
	code = strings.ToUpper(code)
	if code == domain.BaseCurrencyCode {
		return domain.NewConsistency("base_rate_fixed", "the base currency rate is fixed at 1")
	}
	if !value.IsPositive() {
		return domain.NewValidation("invalid_rate", "exchange rate must be positive")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE currencies SET value = $2, updated_at = $3 WHERE code = $1`,
		code, value, time.Now().UTC(),
	)
	if err != nil {
		return wrapErr("update currency rate", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCurrencyNotFound.WithMessage("currency %s not found", code)
	}
	return nil
}
