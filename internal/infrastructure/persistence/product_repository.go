package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id), (*models.ProductModel).ToDomain)
}

func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	return first(r.db.WithContext(ctx).Where("slug = ?", normalizeSlug(slug)), (*models.ProductModel).ToDomain)
}

// FindByIDs returns the products with the given IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	if len(ids) == 0 {
		return []*catalog.Product{}, nil
	}
	var productModels []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&productModels).Error; err != nil {
		return nil, err
	}
	return productsToDomain(productModels), nil
}

// FindByIDsForUpdate loads products with SELECT ... FOR UPDATE. Rows are
// locked in ID order so concurrent checkouts cannot deadlock.
func (r *GormProductRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	if len(ids) == 0 {
		return []*catalog.Product{}, nil
	}
	var productModels []models.ProductModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&productModels).Error; err != nil {
		return nil, err
	}
	return productsToDomain(productModels), nil
}

// FindAll returns products matching the filter with the total count
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]*catalog.Product, int64, error) {
	var productModels []models.ProductModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order(productSort.by(filter.SortBy, filter.SortOrder)).
		Order("id").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&productModels).Error; err != nil {
		return nil, 0, err
	}

	return productsToDomain(productModels), total, nil
}

// FindLowStock returns active products with stock at or below threshold,
// lowest stock first. Out of stock products are included, as in Stats.
func (r *GormProductRepository) FindLowStock(ctx context.Context, threshold, limit int) ([]*catalog.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var productModels []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("active = ? AND stock <= ?", true, threshold).
		Order("stock ASC").
		Order("name ASC").
		Limit(limit).
		Find(&productModels).Error; err != nil {
		return nil, err
	}
	return productsToDomain(productModels), nil
}

// Create inserts a new product
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	if err := insert(r.db.WithContext(ctx), models.ProductModelFromDomain(product)); err != nil {
		return err
	}
	product.MarkStored()
	return nil
}

// Update saves changes to an existing product. A product changed by
// someone else since it was read yields shared.ErrConcurrencyConflict.
func (r *GormProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	return saveVersioned(r.db.WithContext(ctx), &product.BaseAggregateRoot, func() any {
		return models.ProductModelFromDomain(product)
	})
}

// Delete permanently deletes a product
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.ProductModel{}, id)
}

// ExistsBySKU checks whether a SKU is taken
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return r.exists(ctx, "sku = ?", strings.ToUpper(strings.TrimSpace(sku)))
}

// ExistsBySlug checks whether a slug is taken
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return r.exists(ctx, "slug = ?", normalizeSlug(slug))
}

// CountByCategory counts products assigned to a category
func (r *GormProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

// Stats returns catalog-wide counters in a single scan
func (r *GormProductRepository) Stats(ctx context.Context, lowStockThreshold int) (catalog.ProductStats, error) {
	var row struct {
		Total      int64
		Active     int64
		LowStock   int64
		OutOfStock int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN active AND stock <= ? THEN 1 ELSE 0 END), 0) AS low_stock,
			COALESCE(SUM(CASE WHEN active AND stock = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock`,
			lowStockThreshold).
		Scan(&row).Error
	if err != nil {
		return catalog.ProductStats{}, err
	}
	return catalog.ProductStats{
		Total:      row.Total,
		Active:     row.Active,
		LowStock:   row.LowStock,
		OutOfStock: row.OutOfStock,
	}, nil
}

func (r *GormProductRepository) exists(ctx context.Context, where string, arg any) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.ProductModel{}).Where(where, arg))
}

// applyFilter applies filter options to the query
func (r *GormProductRepository) applyFilter(query *gorm.DB, filter catalog.ProductFilter) *gorm.DB {
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		query = query.Where("stock > 0")
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	return query
}

func productsToDomain(rows []models.ProductModel) []*catalog.Product {
	return convertAll(rows, (*models.ProductModel).ToDomain)
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
