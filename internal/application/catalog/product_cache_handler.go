package catalog

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductCacheInvalidator drops cached product views when a product changes
type ProductCacheInvalidator struct {
	cache  ProductCache
	logger *zap.Logger
}

// NewProductCacheInvalidator creates a handler for product change events
func NewProductCacheInvalidator(cache ProductCache, logger *zap.Logger) *ProductCacheInvalidator {
	return &ProductCacheInvalidator{cache: cache, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ProductCacheInvalidator) EventTypes() []string {
	return catalog.ProductEventTypes()
}

// Handle invalidates the id and slug entries of the changed product
func (h *ProductCacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*catalog.ProductChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "ProductChangedEvent"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if err := h.cache.Invalidate(ctx, ProductIDKey(changed.ProductID), ProductSlugKey(changed.Slug)); err != nil {
		return fmt.Errorf("invalidate product %s: %w", changed.ProductID, err)
	}

	h.logger.Debug("product cache invalidated",
		zap.String("product_id", changed.ProductID.String()),
		zap.String("event_type", changed.EventType()),
	)
	return nil
}
