package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySlug finds a product by its slug
	FindBySlug(ctx context.Context, slug string) (*Product, error)

	// FindByIDs returns the products with the given IDs (missing IDs are skipped)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error)

	// FindByIDsForUpdate loads the products ordered by ID and row-locks them
	// for the rest of the surrounding transaction
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*Product, error)

	// FindAll returns products matching the filter with the total count
	FindAll(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)

	// FindLowStock returns active products with stock at or below threshold
	FindLowStock(ctx context.Context, threshold, limit int) ([]*Product, error)

	// Create inserts a new product
	Create(ctx context.Context, product *Product) error

	// Update saves changes to an existing product
	Update(ctx context.Context, product *Product) error

	// Delete permanently deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsBySKU checks whether a SKU is taken
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// ExistsBySlug checks whether a slug is taken
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// CountByCategory counts products assigned to a category
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	// Stats returns catalog-wide counters
	Stats(ctx context.Context, lowStockThreshold int) (ProductStats, error)
}

// ProductStats holds catalog counters for the admin dashboard. LowStock
// uses the FindLowStock definition, so it includes OutOfStock.
type ProductStats struct {
	Total      int64
	Active     int64
	LowStock   int64
	OutOfStock int64
}

// ProductFilter contains filter options for querying products
type ProductFilter struct {
	Keyword    string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	// Active restricts by active flag; nil returns both
	Active *bool

	shared.Paging
	shared.Sorting
}

// NewProductFilter creates a ProductFilter with default paging and sorting
func NewProductFilter() ProductFilter {
	return ProductFilter{
		Paging:  shared.FirstPage(),
		Sorting: shared.NewestFirst(),
	}
}
