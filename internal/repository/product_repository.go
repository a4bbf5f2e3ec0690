package repository

import (
	"context"
	"database/sql"
	"errors"

	"teomarket/internal/domain"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product data access. Stock is
// only ever changed with relative updates.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIDForUpdate locks the product row until the surrounding
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, type, parent_id, sku, name, base_price, vat_included, vat_rate, stock_quantity, status, created_at, updated_at`

// Create inserts a product and its price tiers.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		string(product.Type),
		product.ParentID,
		product.SKU,
		product.Name,
		product.BasePrice,
		product.VatIncluded,
		product.VatRate,
		product.StockQuantity,
		string(product.Status),
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return domain.NewConsistency("sku_exists", "product with this sku already exists")
		case pgCheckViolation:
			return domain.NewValidation("invalid_product", "product violates catalog constraints")
		}
		return wrapErr("create product", err)
	}

	for i := range product.Tiers {
		tier := &product.Tiers[i]
		if tier.ID == uuid.Nil {
			tier.ID = uuid.New()
		}
		tier.ProductID = product.ID
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO product_group_prices (id, product_id, customer_group_id, min_quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, tier.ID, tier.ProductID, tier.CustomerGroupID, tier.MinQuantity, tier.Price)
		if err != nil {
			if pgCode(err) == pgUniqueViolation {
				return domain.NewConsistency("tier_exists", "duplicate price tier for group and quantity")
			}
			return wrapErr("create price tier", err)
		}
	}

	return nil
}

// FindByID retrieves a product with its tiers.
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *productRepository) find(ctx context.Context, query string, id uuid.UUID) (*domain.Product, error) {
	product := &domain.Product{}
	var productType, status string
	var parentID uuid.NullUUID
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&productType,
		&parentID,
		&product.SKU,
		&product.Name,
		&product.BasePrice,
		&product.VatIncluded,
		&product.VatRate,
		&product.StockQuantity,
		&status,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound.WithMessage("product %s not found", id)
		}
		return nil, wrapErr("find product by ID", err)
	}

	if product.Type, err = domain.ParseProductType(productType); err != nil {
		return nil, wrapErr("decode product", err)
	}
	product.Status = domain.ProductStatus(status)
	if parentID.Valid {
		product.ParentID = &parentID.UUID
	}

	tiers, err := r.tiers(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Tiers = tiers

	return product, nil
}

func (r *productRepository) tiers(ctx context.Context, productID uuid.UUID) ([]domain.PriceTier, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, customer_group_id, min_quantity, price
		FROM product_group_prices
		WHERE product_id = $1
		ORDER BY min_quantity ASC
	`, productID)
	if err != nil {
		return nil, wrapErr("list price tiers", err)
	}
	defer rows.Close()

	tiers := []domain.PriceTier{}
	for rows.Next() {
		var tier domain.PriceTier
		var groupID uuid.NullUUID
		if err := rows.Scan(&tier.ID, &tier.ProductID, &groupID, &tier.MinQuantity, &tier.Price); err != nil {
			return nil, wrapErr("scan price tier", err)
		}
		if groupID.Valid {
			id := groupID.UUID
			tier.CustomerGroupID = &id
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate price tiers", err)
	}
	return tiers, nil
}

// DecrementStock subtracts quantity only when enough stock remains.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
	`, id, quantity)
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return domain.ErrInsufficientStock.WithMessage("insufficient stock for product %s", id)
		}
		return wrapErr("decrement stock", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInsufficientStock.WithMessage("insufficient stock for product %s", id)
	}
	return nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1
	`, id, quantity)
	if err != nil {
		return wrapErr("increment stock", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound.WithMessage("product %s not found", id)
	}
	return nil
}
