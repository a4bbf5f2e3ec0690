package repository

import (
	"context"
	"database/sql"
	"errors"

	"teomarket/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = domain.NewNotFound("user_not_found", "user not found")
	ErrUserAlreadyExists = domain.NewConsistency("user_exists", "user with this email already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, customer_group_id, created_at, updated_at`

// Create inserts a new user into the database using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.CustomerGroupID,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return ErrUserAlreadyExists
		case pgForeignKeyViolation:
			return domain.ErrCustomerGroupNotFound
		}
		return wrapErr("create user", err)
	}

	return nil
}

// FindByEmail retrieves a user by email using parameterized queries
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

// FindByID retrieves a user by ID using parameterized queries
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *userRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	user := &domain.User{}
	var groupID uuid.NullUUID
	var firstName, lastName sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&firstName,
		&lastName,
		&user.Role,
		&groupID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrapErr("find user", err)
	}

	user.FirstName = firstName.String
	user.LastName = lastName.String
	if groupID.Valid {
		user.CustomerGroupID = &groupID.UUID
	}
	return user, nil
}
