package repository

import (
	"context"
	"database/sql"
	"errors"

	"teomarket/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnRepository defines data access for product returns.
type ReturnRepository interface {
	Create(ctx context.Context, ret *domain.ProductReturn) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductReturn, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductReturn, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.ProductReturn, error)
	// SumQuantityByOrderProduct totals every return of a line regardless of status.
	SumQuantityByOrderProduct(ctx context.Context, orderProductID uuid.UUID) (int, error)
	// Update persists status, restock marker, refund and comment.
	Update(ctx context.Context, ret *domain.ProductReturn) error
}

type returnRepository struct {
	db DBTX
}

func NewReturnRepository(db DBTX) ReturnRepository {
	return &returnRepository{db: db}
}

const returnColumns = `id, order_id, order_product_id, product_id, customer_id, quantity, return_reason, status,
	restock_item, restocked_at, refund_amount, comment, created_at, updated_at`

func (r *returnRepository) Create(ctx context.Context, ret *domain.ProductReturn) error {
	query := `
		INSERT INTO product_returns (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		ret.ID,
		ret.OrderID,
		ret.OrderProductID,
		ret.ProductID,
		ret.CustomerID,
		ret.Quantity,
		string(ret.Reason),
		string(ret.Status),
		ret.RestockItem,
		ret.RestockedAt,
		refundValue(ret.RefundAmount),
		ret.Comment,
		ret.CreatedAt,
		ret.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrOrderProductNotFound
		}
		return wrapErr("create return", err)
	}
	return nil
}

func (r *returnRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductReturn, error) {
	return r.findOne(ctx, `SELECT `+returnColumns+` FROM product_returns WHERE id = $1`, id)
}

func (r *returnRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductReturn, error) {
	return r.findOne(ctx, `SELECT `+returnColumns+` FROM product_returns WHERE id = $1 FOR UPDATE`, id)
}

func (r *returnRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.ProductReturn, error) {
	ret, err := scanReturn(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReturnNotFound.WithMessage("return %s not found", id)
		}
		return nil, wrapErr("find return", err)
	}
	return ret, nil
}

func (r *returnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.ProductReturn, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+returnColumns+` FROM product_returns WHERE order_id = $1 ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, wrapErr("list returns", err)
	}
	defer rows.Close()

	returns := []*domain.ProductReturn{}
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, wrapErr("scan return", err)
		}
		returns = append(returns, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate returns", err)
	}
	return returns, nil
}

func (r *returnRepository) SumQuantityByOrderProduct(ctx context.Context, orderProductID uuid.UUID) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM product_returns WHERE order_product_id = $1`,
		orderProductID,
	).Scan(&total)
	if err != nil {
		return 0, wrapErr("sum returned quantity", err)
	}
	return total, nil
}

func (r *returnRepository) Update(ctx context.Context, ret *domain.ProductReturn) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE product_returns
		SET status = $2, restocked_at = $3, refund_amount = $4, comment = $5, updated_at = $6
		WHERE id = $1
	`, ret.ID, string(ret.Status), ret.RestockedAt, refundValue(ret.RefundAmount), ret.Comment, ret.UpdatedAt)
	if err != nil {
		return wrapErr("update return", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrReturnNotFound.WithMessage("return %s not found", ret.ID)
	}
	return nil
}

func refundValue(amount *decimal.Decimal) decimal.NullDecimal {
	if amount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *amount, Valid: true}
}

func scanReturn(row interface{ Scan(...interface{}) error }) (*domain.ProductReturn, error) {
	ret := &domain.ProductReturn{}
	var customerID uuid.NullUUID
	var reason, status string
	var restockedAt sql.NullTime
	var refund decimal.NullDecimal
	err := row.Scan(
		&ret.ID,
		&ret.OrderID,
		&ret.OrderProductID,
		&ret.ProductID,
		&customerID,
		&ret.Quantity,
		&reason,
		&status,
		&ret.RestockItem,
		&restockedAt,
		&refund,
		&ret.Comment,
		&ret.CreatedAt,
		&ret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ret.Reason = domain.ReturnReason(reason)
	ret.Status = domain.ReturnStatus(status)
	if customerID.Valid {
		ret.CustomerID = &customerID.UUID
	}
	if restockedAt.Valid {
		t := restockedAt.Time
		ret.RestockedAt = &t
	}
	if refund.Valid {
		amount := refund.Decimal
		ret.RefundAmount = &amount
	}
	return ret, nil
}
