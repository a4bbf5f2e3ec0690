package repository

import (
	"context"
	"database/sql"
	"errors"

	"teomarket/internal/domain"

	"github.com/google/uuid"
)

var ErrCustomerGroupAlreadyExists = domain.NewConsistency("customer_group_exists", "customer group with this code already exists")

// CustomerGroupRepository defines data access for pricing groups.
type CustomerGroupRepository interface {
	Create(ctx context.Context, group *domain.CustomerGroup) error
	List(ctx context.Context) ([]*domain.CustomerGroup, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CustomerGroup, error)
	FindByCode(ctx context.Context, code string) (*domain.CustomerGroup, error)
}

type customerGroupRepository struct {
	db DBTX
}

// NewCustomerGroupRepository creates a new instance of CustomerGroupRepository
func NewCustomerGroupRepository(db DBTX) CustomerGroupRepository {
	return &customerGroupRepository{db: db}
}

func (r *customerGroupRepository) Create(ctx context.Context, group *domain.CustomerGroup) error {
	query := `
		INSERT INTO customer_groups (id, code, name, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, group.ID, group.Code, group.Name, group.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrCustomerGroupAlreadyExists
		}
		return wrapErr("create customer group", err)
	}

	return nil
}

func (r *customerGroupRepository) List(ctx context.Context) ([]*domain.CustomerGroup, error) {
	query := `
		SELECT id, code, name, created_at
		FROM customer_groups
		ORDER BY code ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("list customer groups", err)
	}
	defer rows.Close()

	groups := []*domain.CustomerGroup{}
	for rows.Next() {
		group := &domain.CustomerGroup{}
		if err := rows.Scan(&group.ID, &group.Code, &group.Name, &group.CreatedAt); err != nil {
			return nil, wrapErr("scan customer group", err)
		}
		groups = append(groups, group)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapErr("iterate customer groups", err)
	}

	return groups, nil
}

func (r *customerGroupRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CustomerGroup, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByCode looks a group up by its stable code such as B2C.
func (r *customerGroupRepository) FindByCode(ctx context.Context, code string) (*domain.CustomerGroup, error) {
	return r.findOne(ctx, `WHERE code = $1`, code)
}

func (r *customerGroupRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.CustomerGroup, error) {
	group := &domain.CustomerGroup{}
	err := r.db.QueryRowContext(ctx, `SELECT id, code, name, created_at FROM customer_groups `+where, arg).Scan(
		&group.ID,
		&group.Code,
		&group.Name,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerGroupNotFound
		}
		return nil, wrapErr("find customer group", err)
	}
	return group, nil
}
