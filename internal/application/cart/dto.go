package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartView is the cart as shown to the shopper: lines carry the current
// product data, not the price captured when the line was added
type CartView struct {
	// ID is nil for a cart that has not been persisted yet
	ID        *uuid.UUID      `json:"id"`
	Items     []CartItemView  `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
	// Purchasable is false when any line is unavailable or over stock
	Purchasable bool       `json:"purchasable"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CartItemView is one cart line
type CartItemView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	SKU       string          `json:"sku"`
	ImageKey  string          `json:"image_key,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
}
