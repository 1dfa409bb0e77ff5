package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductModel maps the products table. Slug and SKU are unique across soft
// deleted rows too.
type ProductModel struct {
	AggregateColumns
	Name        string          `gorm:"type:varchar(200);not null"`
	Slug        string          `gorm:"type:varchar(200);not null;uniqueIndex"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock       int             `gorm:"not null;default:0"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"`
	ImageKey    string          `gorm:"type:varchar(500)"`
	Active      bool            `gorm:"not null;default:true;index"`
}

func (ProductModel) TableName() string { return "products" }

func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.Root(),
		Name:              m.Name,
		Slug:              m.Slug,
		SKU:               m.SKU,
		Description:       m.Description,
		Price:             m.Price,
		Stock:             m.Stock,
		CategoryID:        m.CategoryID,
		ImageKey:          m.ImageKey,
		Active:            m.Active,
	}
}

func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		AggregateColumns: columnsOf(p.BaseAggregateRoot),
		Name:             p.Name,
		Slug:             p.Slug,
		SKU:              p.SKU,
		Description:      p.Description,
		Price:            p.Price,
		Stock:            p.Stock,
		CategoryID:       p.CategoryID,
		ImageKey:         p.ImageKey,
		Active:           p.Active,
	}
}

// CategoryModel maps the categories table
type CategoryModel struct {
	AggregateColumns
	Name        string     `gorm:"type:varchar(100);not null"`
	Slug        string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description string     `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	SortOrder   int        `gorm:"not null;default:0"`
}

func (CategoryModel) TableName() string { return "categories" }

func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseAggregateRoot: m.Root(),
		Name:              m.Name,
		Slug:              m.Slug,
		Description:       m.Description,
		ParentID:          m.ParentID,
		SortOrder:         m.SortOrder,
	}
}

func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	return &CategoryModel{
		AggregateColumns: columnsOf(c.BaseAggregateRoot),
		Name:             c.Name,
		Slug:             c.Slug,
		Description:      c.Description,
		ParentID:         c.ParentID,
		SortOrder:        c.SortOrder,
	}
}
