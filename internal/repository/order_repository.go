package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"teomarket/internal/domain"

	"github.com/google/uuid"
)

// OrderRepository defines data access for orders and their snapshot lines.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	// FindOrderProductForUpdate locks one order line.
	FindOrderProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.OrderProduct, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, customer_id, cart_id, status, is_paid, currency_code, exchange_rate,
	subtotal, vat_total, total, payment_method, email, shipping_address, billing_address, created_at, updated_at`

// Create inserts the order header and every line.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return wrapErr("encode shipping address", err)
	}
	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return wrapErr("encode billing address", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.CartID,
		string(order.Status),
		order.IsPaid,
		order.CurrencyCode,
		order.ExchangeRate,
		order.Subtotal,
		order.VatTotal,
		order.Total,
		string(order.PaymentMethod),
		order.Email,
		string(shipping),
		string(billing),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.NewConsistency("order_number_exists", "order number already used")
		}
		return wrapErr("create order", err)
	}

	for i := range order.Products {
		line := &order.Products[i]
		line.OrderID = order.ID
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO order_products (id, order_id, product_id, name, sku, quantity, unit_price, total_price, currency_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, line.ID, line.OrderID, line.ProductID, line.Name, line.SKU, line.Quantity, line.UnitPrice, line.TotalPrice, line.CurrencyCode)
		if err != nil {
			return wrapErr("create order line", err)
		}
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

// ListByCustomer returns a customer's orders, newest first.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, wrapErr("list orders", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate orders", err)
	}

	for _, order := range orders {
		if order.Products, err = r.lines(ctx, order.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithMessage("order %s not found", id)
		}
		return nil, err
	}

	if order.Products, err = r.lines(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	order := &domain.Order{}
	var customerID uuid.NullUUID
	var status, paymentMethod string
	var shipping, billing []byte
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&customerID,
		&order.CartID,
		&status,
		&order.IsPaid,
		&order.CurrencyCode,
		&order.ExchangeRate,
		&order.Subtotal,
		&order.VatTotal,
		&order.Total,
		&paymentMethod,
		&order.Email,
		&shipping,
		&billing,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, wrapErr("scan order", err)
	}

	if order.Status, err = domain.ParseOrderStatus(status); err != nil {
		return nil, wrapErr("decode order status", err)
	}
	order.PaymentMethod = domain.PaymentMethod(paymentMethod)
	if customerID.Valid {
		order.CustomerID = &customerID.UUID
	}
	if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
		return nil, wrapErr("decode shipping address", err)
	}
	if err := json.Unmarshal(billing, &order.BillingAddress); err != nil {
		return nil, wrapErr("decode billing address", err)
	}
	return order, nil
}

const orderProductColumns = `id, order_id, product_id, name, sku, quantity, unit_price, total_price, currency_code`

func scanOrderProduct(row interface{ Scan(...interface{}) error }, line *domain.OrderProduct) error {
	return row.Scan(
		&line.ID,
		&line.OrderID,
		&line.ProductID,
		&line.Name,
		&line.SKU,
		&line.Quantity,
		&line.UnitPrice,
		&line.TotalPrice,
		&line.CurrencyCode,
	)
}

func (r *orderRepository) lines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderProduct, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderProductColumns+` FROM order_products WHERE order_id = $1 ORDER BY sku ASC, id ASC`, orderID)
	if err != nil {
		return nil, wrapErr("list order lines", err)
	}
	defer rows.Close()

	lines := []domain.OrderProduct{}
	for rows.Next() {
		var line domain.OrderProduct
		if err := scanOrderProduct(rows, &line); err != nil {
			return nil, wrapErr("scan order line", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate order lines", err)
	}
	return lines, nil
}

func (r *orderRepository) FindOrderProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.OrderProduct, error) {
	line := &domain.OrderProduct{}
	row := r.db.QueryRowContext(ctx, `SELECT `+orderProductColumns+` FROM order_products WHERE id = $1 FOR UPDATE`, id)
	if err := scanOrderProduct(row, line); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderProductNotFound
		}
		return nil, wrapErr("find order line", err)
	}
	return line, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	return r.update(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status))
}

func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, `UPDATE orders SET is_paid = $2, updated_at = $3 WHERE id = $1`, id, true)
}

func (r *orderRepository) update(ctx context.Context, query string, id uuid.UUID, value interface{}) error {
	result, err := r.db.ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return wrapErr("update order", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOrderNotFound.WithMessage("order %s not found", id)
	}
	return nil
}
