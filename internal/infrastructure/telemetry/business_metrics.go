// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks storefront activity. Counters are fed from domain
// events, gauges are sampled periodically from a StoreMetricsProvider.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	ordersPlaced       *Counter
	orderRevenueCents  *Counter
	orderStatusChanges *Counter
	ordersCancelled    *Counter
	usersRegistered    *Counter

	// Gauge metrics (point-in-time values)
	lowStockProducts *Gauge
	pendingOrders    *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
	started     atomic.Bool
	done        chan struct{}

	provider StoreMetricsProvider
}

// StoreMetricsProvider supplies the values of the sampled gauges
type StoreMetricsProvider interface {
	// LowStockCount returns the number of active products at or below the threshold
	LowStockCount(ctx context.Context) (int64, error)
	// PendingOrderCount returns the number of orders awaiting payment
	PendingOrderCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Provider StoreMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		provider: cfg.Provider,
	}

	counters := []struct {
		dst                     **Counter
		name, description, unit string
	}{
		{&bm.ordersPlaced, "storefront_orders_placed_total", "Total number of orders placed", "{orders}"},
		{&bm.orderRevenueCents, "storefront_order_revenue_total", "Total value of placed orders in cents", "{cents}"},
		{&bm.orderStatusChanges, "storefront_order_status_changes_total", "Order status transitions by target status", "{transitions}"},
		{&bm.ordersCancelled, "storefront_orders_cancelled_total", "Cancelled orders by previous status", "{orders}"},
		{&bm.usersRegistered, "storefront_users_registered_total", "Total number of registered users", "{users}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	bm.lowStockProducts, err = NewGauge(cfg.Meter,
		"storefront_low_stock_products",
		"Number of active products at or below the low stock threshold",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	bm.pendingOrders, err = NewGauge(cfg.Meter,
		"storefront_pending_orders",
		"Number of orders awaiting payment",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Event-driven counters
// =============================================================================

// RecordOrderPlaced counts a placed order and its total
func (bm *BusinessMetrics) RecordOrderPlaced(ctx context.Context, total decimal.Decimal) {
	bm.ordersPlaced.Inc(ctx)
	bm.orderRevenueCents.Add(ctx, toCents(total))
}

// RecordStatusChange counts a transition into status
func (bm *BusinessMetrics) RecordStatusChange(ctx context.Context, status order.Status) {
	bm.orderStatusChanges.Inc(ctx, AttrOrderStatus.String(string(status)))
}

// RecordCancellation counts a cancelled order
func (bm *BusinessMetrics) RecordCancellation(ctx context.Context, previous order.Status) {
	bm.ordersCancelled.Inc(ctx, AttrPreviousStatus.String(string(previous)))
}

// RecordUserRegistered counts a new account
func (bm *BusinessMetrics) RecordUserRegistered(ctx context.Context, role identity.Role) {
	bm.usersRegistered.Inc(ctx, AttrUserRole.String(string(role)))
}

// EventTypes implements shared.EventHandler
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderStatusChanged,
		order.EventTypeOrderCancelled,
		identity.EventTypeUserRegistered,
	}
}

// Handle implements shared.EventHandler
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderPlacedEvent:
		bm.RecordOrderPlaced(ctx, e.Total)
	case *order.OrderStatusChangedEvent:
		bm.RecordStatusChange(ctx, e.NewStatus)
	case *order.OrderCancelledEvent:
		bm.RecordCancellation(ctx, e.PreviousStatus)
	case *identity.UserRegisteredEvent:
		bm.RecordUserRegistered(ctx, e.Role)
	default:
		bm.logger.Debug("Ignoring event without metrics", zap.String("event_type", event.EventType()))
	}
	return nil
}

// toCents converts a money amount to integer cents, rounding half away from zero
func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection samples the gauges every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		bm.started.Store(true)
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	defer close(bm.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.Collect(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.Collect(ctx)
		}
	}
}

// Collect samples the gauges once
func (bm *BusinessMetrics) Collect(ctx context.Context) {
	if bm.provider == nil {
		bm.logger.Debug("No store metrics provider configured, skipping gauge collection")
		return
	}

	if n, err := bm.provider.LowStockCount(ctx); err != nil {
		bm.logger.Warn("Failed to get low stock count", zap.Error(err))
	} else {
		bm.lowStockProducts.Record(ctx, n)
	}

	if n, err := bm.provider.PendingOrderCount(ctx); err != nil {
		bm.logger.Warn("Failed to get pending order count", zap.Error(err))
	} else {
		bm.pendingOrders.Record(ctx, n)
	}
}

// Stop stops the periodic collection and waits for the loop to exit.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
	if bm.started.Load() {
		<-bm.done
	}
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
