package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultCartRetentionDays is how long converted carts are kept.
const DefaultCartRetentionDays = 30

// CartPurger deletes converted carts last touched before cutoff.
type CartPurger interface {
	DeleteConvertedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartCleanup removes converted carts older than the retention window.
// Active carts are never touched.
type CartCleanup struct {
	carts     CartPurger
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewCartCleanup(carts CartPurger, retentionDays int, logger *zap.Logger) *CartCleanup {
	if retentionDays <= 0 {
		retentionDays = DefaultCartRetentionDays
	}
	return &CartCleanup{
		carts:     carts,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger.Named("cart_cleanup"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (j *CartCleanup) Name() string { return "cart_cleanup" }

func (j *CartCleanup) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.carts.DeleteConvertedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge converted carts: %w", err)
	}
	j.logger.Info("Converted carts purged",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
	return nil
}

// TokenPurger deletes refresh tokens that expired before a point in time.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RefreshTokenCleanup drops expired refresh tokens.
type RefreshTokenCleanup struct {
	tokens TokenPurger
	logger *zap.Logger
	now    func() time.Time
}

func NewRefreshTokenCleanup(tokens TokenPurger, logger *zap.Logger) *RefreshTokenCleanup {
	return &RefreshTokenCleanup{
		tokens: tokens,
		logger: logger.Named("token_cleanup"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (j *RefreshTokenCleanup) Name() string { return "refresh_token_cleanup" }

func (j *RefreshTokenCleanup) Run(ctx context.Context) error {
	deleted, err := j.tokens.DeleteExpired(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	j.logger.Info("Expired refresh tokens purged", zap.Int64("deleted", deleted))
	return nil
}
