// Package maintenance holds the periodic cleanup jobs run by the scheduler.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Task names
const (
	TaskPurgeRefreshTokens  = "purge_refresh_tokens"
	TaskPurgeGuestCarts     = "purge_guest_carts"
	TaskExpirePendingOrders = "expire_pending_orders"
)

const expireBatchSize = 100

// OrderExpirer cancels stale pending orders
type OrderExpirer interface {
	CancelExpired(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Config controls retention windows
type Config struct {
	// ExpiredTokenRetention keeps expired refresh tokens this long for reuse detection
	ExpiredTokenRetention time.Duration
	GuestCartTTL          time.Duration
	// PendingOrderTTL cancels unpaid orders older than this; zero disables
	PendingOrderTTL time.Duration
}

// DefaultConfig returns the default retention windows
func DefaultConfig() Config {
	return Config{
		ExpiredTokenRetention: 24 * time.Hour,
		GuestCartTTL:          30 * 24 * time.Hour,
	}
}

// Service executes maintenance jobs. It implements scheduler.Executor.
type Service struct {
	tokens identity.RefreshTokenRepository
	carts  cart.Repository
	orders OrderExpirer
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new maintenance Service
func NewService(
	tokens identity.RefreshTokenRepository,
	carts cart.Repository,
	orders OrderExpirer,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		tokens: tokens,
		carts:  carts,
		orders: orders,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Tasks lists the tasks this service runs with the given intervals.
// Order expiry is left out while PendingOrderTTL is zero.
func (s *Service) Tasks(tokenInterval, cartInterval, orderInterval time.Duration) []scheduler.PeriodicTask {
	tasks := []scheduler.PeriodicTask{
		{Name: TaskPurgeRefreshTokens, Interval: tokenInterval},
		{Name: TaskPurgeGuestCarts, Interval: cartInterval},
	}
	if s.config.PendingOrderTTL > 0 && s.orders != nil {
		tasks = append(tasks, scheduler.PeriodicTask{Name: TaskExpirePendingOrders, Interval: orderInterval})
	}
	return tasks
}

// Execute implements scheduler.Executor
func (s *Service) Execute(ctx context.Context, job *scheduler.Job) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "maintenance", job.Task)
	defer span.End()

	var err error
	telemetry.Operation(telemetry.OperationMaintenance).With("task", job.Task).Do(ctx, func(c context.Context) {
		err = s.run(c, job)
	})
	telemetry.RecordError(span, err)
	return err
}

func (s *Service) run(ctx context.Context, job *scheduler.Job) error {
	switch job.Task {
	case TaskPurgeRefreshTokens:
		return s.PurgeRefreshTokens(ctx)
	case TaskPurgeGuestCarts:
		return s.PurgeGuestCarts(ctx)
	case TaskExpirePendingOrders:
		return s.ExpirePendingOrders(ctx)
	}
	return fmt.Errorf("%w: %s", scheduler.ErrUnknownTask, job.Task)
}

// PurgeRefreshTokens deletes refresh tokens that expired before the
// retention window
func (s *Service) PurgeRefreshTokens(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.config.ExpiredTokenRetention)
	n, err := s.tokens.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	if n > 0 {
		s.logger.Info("Purged expired refresh tokens", zap.Int64("count", n))
	}
	return nil
}

// PurgeGuestCarts deletes guest carts idle longer than GuestCartTTL
func (s *Service) PurgeGuestCarts(ctx context.Context) error {
	if s.config.GuestCartTTL <= 0 {
		return nil
	}
	cutoff := s.now().UTC().Add(-s.config.GuestCartTTL)
	n, err := s.carts.DeleteStaleGuestCarts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge guest carts: %w", err)
	}
	if n > 0 {
		s.logger.Info("Purged stale guest carts", zap.Int64("count", n))
	}
	return nil
}

// ExpirePendingOrders cancels unpaid orders older than PendingOrderTTL and
// restores their stock
func (s *Service) ExpirePendingOrders(ctx context.Context) error {
	if s.config.PendingOrderTTL <= 0 || s.orders == nil {
		return nil
	}
	cutoff := s.now().UTC().Add(-s.config.PendingOrderTTL)
	total := 0
	for {
		n, err := s.orders.CancelExpired(ctx, cutoff, expireBatchSize)
		if err != nil {
			return fmt.Errorf("failed to expire pending orders: %w", err)
		}
		total += n
		if n < expireBatchSize {
			break
		}
	}
	if total > 0 {
		s.logger.Info("Cancelled expired pending orders", zap.Int("count", total))
	}
	return nil
}
