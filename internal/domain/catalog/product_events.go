package catalog

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated      = "ProductCreated"
	EventTypeProductUpdated      = "ProductUpdated"
	EventTypeProductStockChanged = "ProductStockChanged"
	EventTypeProductDeleted      = "ProductDeleted"
)

// ProductEventTypes lists every product event, for subscribers that react
// to any change (cache invalidation).
func ProductEventTypes() []string {
	return []string{
		EventTypeProductCreated,
		EventTypeProductUpdated,
		EventTypeProductStockChanged,
		EventTypeProductDeleted,
	}
}

// ProductChangedEvent is published whenever a product is created or changed
type ProductChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Slug      string    `json:"slug"`
	Stock     int       `json:"stock"`
	Active    bool      `json:"active"`
}

// NewProductChangedEvent creates a ProductChangedEvent of the given type
func NewProductChangedEvent(eventType string, product *Product) *ProductChangedEvent {
	return &ProductChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		SKU:             product.SKU,
		Slug:            product.Slug,
		Stock:           product.Stock,
		Active:          product.Active,
	}
}
