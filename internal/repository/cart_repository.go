package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"teomarket/internal/domain"

	"github.com/google/uuid"
)

// CartRepository defines data access for carts and their items.
type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	// FindByIDForUpdate locks the cart row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	// FindActiveBySessionForUpdate is FindActiveBySession holding a row lock
	// until the surrounding transaction ends.
	FindActiveBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Cart, error)
	FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	AssignCustomer(ctx context.Context, cartID, customerID uuid.UUID) error
	// AddItem adds quantity to the product line, creating it when missing.
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	// MarkConverted flips an active cart to converted.
	MarkConverted(ctx context.Context, cartID uuid.UUID) error
	// DeleteConvertedBefore removes converted carts last touched before cutoff.
	DeleteConvertedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type cartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, session_id, customer_id, status, created_at, updated_at`

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (` + cartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		cart.ID,
		nullString(cart.SessionID),
		cart.CustomerID,
		string(cart.Status),
		cart.CreatedAt,
		cart.UpdatedAt,
	)
	if err != nil {
		return wrapErr("create cart", err)
	}
	return nil
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *cartRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.findOne(ctx, `WHERE id = $1 FOR UPDATE`, id)
}

// FindActiveBySession returns the newest anonymous active cart of a session.
func (r *cartRepository) FindActiveBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.findOne(ctx, `
		WHERE session_id = $1 AND customer_id IS NULL AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`, sessionID)
}

func (r *cartRepository) FindActiveBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.findOne(ctx, `
		WHERE session_id = $1 AND customer_id IS NULL AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
		FOR UPDATE
	`, sessionID)
}

func (r *cartRepository) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.findOne(ctx, `
		WHERE customer_id = $1 AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`, customerID)
}

func (r *cartRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Cart, error) {
	cart := &domain.Cart{}
	var sessionID sql.NullString
	var customerID uuid.NullUUID
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM carts `+where, arg).Scan(
		&cart.ID,
		&sessionID,
		&customerID,
		&status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, wrapErr("find cart", err)
	}

	cart.SessionID = sessionID.String
	cart.Status = domain.CartStatus(status)
	if customerID.Valid {
		cart.CustomerID = &customerID.UUID
	}

	items, err := r.items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *cartRepository) items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, id ASC
	`, cartID)
	if err != nil {
		return nil, wrapErr("list cart items", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, wrapErr("scan cart item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate cart items", err)
	}
	return items, nil
}

func (r *cartRepository) AssignCustomer(ctx context.Context, cartID, customerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE carts SET customer_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'active'
	`, cartID, customerID, time.Now().UTC())
	if err != nil {
		return wrapErr("assign cart customer", err)
	}
	return r.expectActive(ctx, result, cartID)
}

func (r *cartRepository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`, uuid.New(), cartID, productID, quantity, now)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrProductNotFound.WithMessage("product %s not found", productID)
		}
		return wrapErr("add cart item", err)
	}
	return r.touch(ctx, cartID, now)
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = $4
		WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID, quantity, now)
	if err != nil {
		return wrapErr("update cart item", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCartItemNotFound
	}
	return r.touch(ctx, cartID, now)
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return wrapErr("remove cart item", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCartItemNotFound
	}
	return r.touch(ctx, cartID, time.Now().UTC())
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return wrapErr("delete cart items", err)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, cartID uuid.UUID) error {
	if err := r.DeleteItems(ctx, cartID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return wrapErr("delete cart", err)
	}
	return nil
}

func (r *cartRepository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE carts SET status = 'converted', updated_at = $2
		WHERE id = $1 AND status = 'active'
	`, cartID, time.Now().UTC())
	if err != nil {
		return wrapErr("convert cart", err)
	}
	return r.expectActive(ctx, result, cartID)
}

func (r *cartRepository) DeleteConvertedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE status = 'converted' AND updated_at < $1)
	`, cutoff)
	if err != nil {
		return 0, wrapErr("delete converted cart items", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE status = 'converted' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, wrapErr("delete converted carts", err)
	}
	return rowsAffected(result)
}

func (r *cartRepository) touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, cartID, at); err != nil {
		return wrapErr("touch cart", err)
	}
	return nil
}

// expectActive turns a zero-row update on an active-only predicate into the
// matching domain error.
func (r *cartRepository) expectActive(ctx context.Context, result sql.Result, cartID uuid.UUID) error {
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return wrapErr("check cart", err)
	}
	if !exists {
		return domain.ErrCartNotFound
	}
	return domain.ErrCartNotActive.WithMessage("cart %s is not active", cartID)
}
