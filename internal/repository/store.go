package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"teomarket/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories react to.
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
	pgAdminShutdown       = "57P01"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repositories groups every repository bound to one DBTX.
type Repositories struct {
	Currencies     CurrencyRepository
	CustomerGroups CustomerGroupRepository
	Users          UserRepository
	RefreshTokens  RefreshTokenRepository
	Products       ProductRepository
	Carts          CartRepository
	Orders         OrderRepository
	Returns        ReturnRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Currencies:     NewCurrencyRepository(db),
		CustomerGroups: NewCustomerGroupRepository(db),
		Users:          NewUserRepository(db),
		RefreshTokens:  NewRefreshTokenRepository(db),
		Products:       NewProductRepository(db),
		Carts:          NewCartRepository(db),
		Orders:         NewOrderRepository(db),
		Returns:        NewReturnRepository(db),
	}
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	// Repositories returns repositories bound to the pool (autocommit).
	Repositories() *Repositories
	// WithinTx runs fn inside a read-committed transaction. Returning an
	// error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

type sqlStore struct {
	db    *sql.DB
	repos *Repositories
}

// NewStore creates a Store over the connection pool.
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db, repos: NewRepositories(db)}
}

func (s *sqlStore) Repositories() *Repositories {
	return s.repos
}

func (s *sqlStore) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

// wrapErr classifies infrastructure failures as transient and wraps the rest.
func wrapErr(op string, err error) error {
	if isTransient(err) {
		return domain.NewTransient("failed to "+op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailed, pgDeadlockDetected, pgAdminShutdown:
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}

// pgCode returns the SQLSTATE of err, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
