package handler

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductListQuery holds the catalog search parameters
type ProductListQuery struct {
	Keyword    string `form:"q" binding:"max=200"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	MinPrice   string `form:"min_price" binding:"omitempty,numeric"`
	MaxPrice   string `form:"max_price" binding:"omitempty,numeric"`
	InStock    bool   `form:"in_stock"`
	// Active is honoured on the admin listing only
	Active    *bool  `form:"active"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=name price stock created_at"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

func (q ProductListQuery) toFilter() (catalog.ProductFilter, error) {
	f := catalog.NewProductFilter()
	f.Keyword = strings.TrimSpace(q.Keyword)
	f.InStock = q.InStock
	f.Active = q.Active
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	if q.SortBy != "" {
		f.SortBy = q.SortBy
	}
	if q.SortOrder != "" {
		f.SortOrder = q.SortOrder
	}

	if q.CategoryID != "" {
		id, err := uuid.Parse(q.CategoryID)
		if err != nil {
			return f, errors.New("invalid category_id")
		}
		f.CategoryID = &id
	}
	var err error
	if f.MinPrice, err = parsePrice(q.MinPrice, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice(q.MaxPrice, "max_price"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, errors.New("min_price must not exceed max_price")
	}
	return f, nil
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, errors.New("invalid " + field)
	}
	return &d, nil
}

// CreateProductRequest is the body of POST /admin/products
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200" example:"Espresso Cup"`
	SKU         string          `json:"sku" binding:"required,min=1,max=64" example:"CUP-ESP-01"`
	Description string          `json:"description" binding:"max=5000"`
	Price       decimal.Decimal `json:"price" binding:"required" swaggertype:"string" example:"12.50"`
	Stock       int             `json:"stock" binding:"gte=0" example:"40"`
	CategoryID  *uuid.UUID      `json:"category_id" swaggertype:"string"`
	Active      *bool           `json:"active"`
}

// UpdateProductRequest is the body of PUT /admin/products/:id. Omitted
// fields are left unchanged; category_id null with clear_category removes
// the category.
type UpdateProductRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description   *string          `json:"description" binding:"omitempty,max=5000"`
	Slug          *string          `json:"slug" binding:"omitempty,min=1,max=220"`
	Price         *decimal.Decimal `json:"price" swaggertype:"string"`
	CategoryID    *uuid.UUID       `json:"category_id" swaggertype:"string"`
	ClearCategory bool             `json:"clear_category"`
}

// StockUpdateRequest is the body of PATCH /admin/products/:id/stock. Send
// either set or delta.
type StockUpdateRequest struct {
	Set   *int `json:"set" binding:"omitempty,gte=0" example:"25"`
	Delta *int `json:"delta" example:"-3"`
}

// ImageUploadRequest is the body of POST /admin/products/:id/image-upload
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required" example:"image/jpeg"`
	Size        int64  `json:"size" binding:"required,gt=0" example:"204800"`
}

// ConfirmImageRequest is the body of POST /admin/products/:id/image
type ConfirmImageRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=512"`
}

// DeleteProductResponse tells whether the product was removed or only
// deactivated because orders reference it
type DeleteProductResponse struct {
	ID          uuid.UUID `json:"id"`
	SoftDeleted bool      `json:"soft_deleted"`
}
