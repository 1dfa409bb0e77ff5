package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormStoreMetricsProvider implements StoreMetricsProvider with aggregate
// queries on the products and orders tables.
type GormStoreMetricsProvider struct {
	db                *gorm.DB
	lowStockThreshold int
}

// NewGormStoreMetricsProvider creates a new GormStoreMetricsProvider.
func NewGormStoreMetricsProvider(db *gorm.DB, lowStockThreshold int) *GormStoreMetricsProvider {
	return &GormStoreMetricsProvider{db: db, lowStockThreshold: lowStockThreshold}
}

// LowStockCount returns the number of active products at or below the threshold.
func (p *GormStoreMetricsProvider) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("products").
		Where("active = ? AND stock <= ?", true, p.lowStockThreshold).
		Count(&count).Error
	return count, err
}

// PendingOrderCount returns the number of orders awaiting payment.
func (p *GormStoreMetricsProvider) PendingOrderCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("orders").
		Where("status = ?", "pending").
		Count(&count).Error
	return count, err
}
