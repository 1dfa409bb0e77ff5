package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for cart persistence
type Repository interface {
	// FindActive returns the active cart of owner or shared.ErrNotFound
	FindActive(ctx context.Context, owner Owner) (*Cart, error)

	// FindActiveForUpdate is FindActive plus a row lock held until the
	// surrounding transaction ends
	FindActiveForUpdate(ctx context.Context, owner Owner) (*Cart, error)

	// Create inserts a cart with its items
	Create(ctx context.Context, cart *Cart) error

	// Save persists status and replaces the item set
	Save(ctx context.Context, cart *Cart) error

	// DeleteStaleGuestCarts removes guest carts not updated since cutoff
	DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error)

	// RemoveProductFromActiveCarts drops a product from every active cart
	RemoveProductFromActiveCarts(ctx context.Context, productID uuid.UUID) (int64, error)
}
