package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ErrDuplicateOrderNumber is returned by Create when the order number is taken
var ErrDuplicateOrderNumber = shared.NewDomainError("DUPLICATE_ORDER_NUMBER", "Order number already exists")

// Repository defines the interface for order persistence
type Repository interface {
	// Create inserts an order with its items
	Create(ctx context.Context, order *Order) error

	// Update persists status, timestamps and cancel reason
	Update(ctx context.Context, order *Order) error

	// FindByID finds an order with items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate finds an order and row-locks it
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByNumber finds an order by its order number
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ExistsByNumber checks whether an order number is taken
	ExistsByNumber(ctx context.Context, orderNumber string) (bool, error)

	// FindAll returns orders matching the filter with the total count.
	// Items are loaded.
	FindAll(ctx context.Context, filter Filter) ([]*Order, int64, error)

	// FindPendingBefore returns pending orders created before cutoff
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)

	// ExistsForProduct reports whether any order references the product
	ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error)

	// CountByStatus returns the number of orders per status
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// Revenue sums totals of orders in revenue statuses created at or after since.
	// A zero since means all time.
	Revenue(ctx context.Context, since time.Time) (decimal.Decimal, int64, error)

	// TopProducts returns best sellers by units over non-cancelled orders
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
}

// ProductSales aggregates units and revenue for one product
type ProductSales struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	Units       int64
	Revenue     decimal.Decimal
}

// Filter contains filter options for querying orders
type Filter struct {
	UserID      *uuid.UUID
	Status      *Status
	OrderNumber string
	From        *time.Time
	To          *time.Time

	shared.Paging
	shared.Sorting
}

// NewFilter creates a Filter with default paging and sorting
func NewFilter() Filter {
	return Filter{
		Paging:  shared.FirstPage(),
		Sorting: shared.NewestFirst(),
	}
}
