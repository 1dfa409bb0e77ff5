package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadOrderItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_name ASC").Order("id ASC")
	})
}

// Create inserts an order with its items. The insert runs in its own
// savepoint so a number collision leaves an enclosing transaction usable
// for the retry.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return order.ErrDuplicateOrderNumber
		}
		return err
	}
	o.MarkStored()
	return nil
}

// Update persists status, timestamps and cancel reason
func (r *GormOrderRepository) Update(ctx context.Context, o *order.Order) error {
	return saveVersioned(r.db.WithContext(ctx), &o.BaseAggregateRoot, func() any {
		return models.OrderModelFromDomain(o)
	})
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := preloadOrderItems(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds an order and locks its row
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := preloadOrderItems(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var model models.OrderModel
	if err := preloadOrderItems(r.db.WithContext(ctx)).
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks whether an order number is taken
func (r *GormOrderRepository) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("order_number = ?", orderNumber))
}

// FindAll returns orders matching the filter with the total count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]*order.Order, int64, error) {
	var orderModels []models.OrderModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := preloadOrderItems(query).
		Order(orderSort.by(filter.SortBy, filter.SortOrder)).
		Order("id").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	return ordersToDomain(orderModels), total, nil
}

// FindPendingBefore returns pending orders created before cutoff, oldest first
func (r *GormOrderRepository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orderModels []models.OrderModel
	if err := preloadOrderItems(r.db.WithContext(ctx)).
		Where("status = ? AND created_at < ?", order.StatusPending, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(orderModels), nil
}

// ExistsForProduct reports whether any order item references the product
func (r *GormOrderRepository) ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.OrderItemModel{}).Where("product_id = ?", productID))
}

// CountByStatus returns the number of orders per status
func (r *GormOrderRepository) CountByStatus(ctx context.Context) (map[order.Status]int64, error) {
	var rows []struct {
		Status order.Status
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[order.Status]int64, len(order.AllStatuses()))
	for _, status := range order.AllStatuses() {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Revenue sums totals of paid, shipped and delivered orders created at or
// after since
func (r *GormOrderRepository) Revenue(ctx context.Context, since time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Revenue decimal.Decimal
		Orders  int64
	}
	query := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS orders").
		Where("status IN ?", order.RevenueStatuses())
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, 0, err
	}
	return row.Revenue.Round(2), row.Orders, nil
}

// TopProducts returns best sellers by units over non-cancelled orders
func (r *GormOrderRepository) TopProducts(ctx context.Context, limit int) ([]order.ProductSales, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []struct {
		ProductID   uuid.UUID
		ProductName string
		SKU         string
		Units       int64
		Revenue     decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Select(`oi.product_id AS product_id,
			MAX(oi.product_name) AS product_name,
			MAX(oi.sku) AS sku,
			SUM(oi.quantity) AS units,
			SUM(oi.line_total) AS revenue`).
		Where("o.status <> ?", order.StatusCancelled).
		Group("oi.product_id").
		Order("units DESC").
		Order("product_name ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	sales := make([]order.ProductSales, len(rows))
	for i, row := range rows {
		sales[i] = order.ProductSales{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			SKU:         row.SKU,
			Units:       row.Units,
			Revenue:     row.Revenue.Round(2),
		}
	}
	return sales, nil
}

// applyFilter applies filter options to the query
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter order.Filter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrderNumber != "" {
		query = query.Where("order_number = ?", filter.OrderNumber)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return query
}

func ordersToDomain(rows []models.OrderModel) []*order.Order {
	return convertAll(rows, (*models.OrderModel).ToDomain)
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
