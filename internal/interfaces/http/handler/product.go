package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// ProductService is the catalog API the product handler needs
type ProductService interface {
	ListActive(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[catalogapp.ProductResponse], error)
	List(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[catalogapp.ProductResponse], error)
	GetActive(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	GetActiveBySlug(ctx context.Context, slug string) (*catalogapp.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStock(ctx context.Context, id uuid.UUID, req catalogapp.StockRequest) (*catalogapp.ProductResponse, error)
	Activate(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	CreateImageUpload(ctx context.Context, id uuid.UUID, req catalogapp.ImageUploadRequest) (*catalogapp.ImageUploadResponse, error)
	ConfirmImage(ctx context.Context, id uuid.UUID, storageKey string) (*catalogapp.ProductResponse, error)
}

// ProductHandler serves the public catalog and the admin product API
type ProductHandler struct {
	replies
	productService ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// List godoc
// @Summary      Browse products
// @Description  Lists active products with keyword search over name, SKU and description
// @Tags         catalog
// @Produce      json
// @Param        q           query string false "Search keyword"
// @Param        category_id query string false "Category ID"
// @Param        min_price   query string false "Minimum price"
// @Param        max_price   query string false "Maximum price"
// @Param        in_stock    query bool   false "Only products in stock"
// @Param        sort_by     query string false "name, price, stock or created_at"
// @Param        sort_order  query string false "asc or desc"
// @Param        page        query int    false "Page number" default(1)
// @Param        page_size   query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]catalogapp.ProductResponse,meta=dto.PageMeta}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Router       /catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var query ProductListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	filter, ok := h.productFilter(c, query)
	if !ok {
		return
	}
	filter.Active = nil

	page, err := h.productService.ListActive(c.Request.Context(), filter)
	if err != nil {
		h.failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Page(page))
}

func (h *ProductHandler) productFilter(c *gin.Context, query ProductListQuery) (catalog.ProductFilter, bool) {
	filter, err := query.toFilter()
	if err != nil {
		h.fail(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return filter, false
	}
	return filter, true
}

// Get godoc
// @Summary      Product details
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Router       /catalog/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetActive(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}

// GetBySlug godoc
// @Summary      Product details by slug
// @Tags         catalog
// @Produce      json
// @Param        slug path string true "Product slug"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Router       /catalog/products/slug/{slug} [get]
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, err := h.productService.GetActiveBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}

// AdminList godoc
// @Summary      List all products
// @Description  Lists active and inactive products
// @Tags         admin-products
// @Produce      json
// @Param        q           query string false "Search keyword"
// @Param        category_id query string false "Category ID"
// @Param        active      query bool   false "Filter by active flag"
// @Param        in_stock    query bool   false "Only products in stock"
// @Param        sort_by     query string false "name, price, stock or created_at"
// @Param        sort_order  query string false "asc or desc"
// @Param        page        query int    false "Page number" default(1)
// @Param        page_size   query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]catalogapp.ProductResponse,meta=dto.PageMeta}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      403 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products [get]
func (h *ProductHandler) AdminList(c *gin.Context) {
	var query ProductListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	filter, ok := h.productFilter(c, query)
	if !ok {
		return
	}
	page, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		h.failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Page(page))
}

// AdminGet godoc
// @Summary      Get any product
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id} [get]
func (h *ProductHandler) AdminGet(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}

// Create godoc
// @Summary      Create a product
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        request body CreateProductRequest true "Product"
// @Success      201 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Create(c.Request.Context(), catalogapp.CreateProductRequest{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Active:      req.Active,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.created(c, product)
}

// Update godoc
// @Summary      Update a product
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id      path string               true "Product ID"
// @Param        request body UpdateProductRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, catalogapp.UpdateProductRequest{
		Name:          req.Name,
		Description:   req.Description,
		Slug:          req.Slug,
		Price:         req.Price,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}

// Delete godoc
// @Summary      Delete a product
// @Description  Removes the product, or only deactivates it when orders reference it
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=DeleteProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	soft, err := h.productService.Delete(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, DeleteProductResponse{ID: id, SoftDeleted: soft})
}

// UpdateStock godoc
// @Summary      Set or adjust stock
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id      path string             true "Product ID"
// @Param        request body StockUpdateRequest true "Either set or delta"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id}/stock [patch]
func (h *ProductHandler) UpdateStock(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req StockUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if (req.Set == nil) == (req.Delta == nil) {
		h.fail(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Send exactly one of set or delta")
		return
	}
	product, err := h.productService.UpdateStock(c.Request.Context(), id, catalogapp.StockRequest{Set: req.Set, Delta: req.Delta})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}

// Activate godoc
// @Summary      Publish a product
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	h.toggle(c, h.productService.Activate)
}

// Deactivate godoc
// @Summary      Hide a product from the storefront
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id}/deactivate [post]
func (h *ProductHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.productService.Deactivate)
}

func (h *ProductHandler) toggle(c *gin.Context, fn func(context.Context, uuid.UUID) (*catalogapp.ProductResponse, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := fn(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}

// CreateImageUpload godoc
// @Summary      Request an image upload URL
// @Description  Returns a presigned PUT URL for a JPEG, PNG or WebP product image
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id      path string             true "Product ID"
// @Param        request body ImageUploadRequest true "Image metadata"
// @Success      200 {object} dto.Response{data=catalogapp.ImageUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      503 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id}/image-upload [post]
func (h *ProductHandler) CreateImageUpload(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ImageUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	upload, err := h.productService.CreateImageUpload(c.Request.Context(), id, catalogapp.ImageUploadRequest{
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, upload)
}

// ConfirmImage godoc
// @Summary      Attach an uploaded image
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id      path string              true "Product ID"
// @Param        request body ConfirmImageRequest true "Storage key from the upload step"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/products/{id}/image [post]
func (h *ProductHandler) ConfirmImage(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ConfirmImageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.ConfirmImage(c.Request.Context(), id, req.StorageKey)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, product)
}
