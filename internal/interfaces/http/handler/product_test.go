package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupProductRouter(svc *mockProductService) *gin.Engine {
	h := NewProductHandler(svc)
	r := gin.New()
	r.GET("/products", h.List)
	r.GET("/products/:id", h.Get)
	r.GET("/products/slug/:slug", h.GetBySlug)

	adm := r.Group("/admin/products")
	adm.GET("", h.AdminList)
	adm.POST("", h.Create)
	adm.PUT("/:id", h.Update)
	adm.DELETE("/:id", h.Delete)
	adm.PATCH("/:id/stock", h.UpdateStock)
	adm.POST("/:id/activate", h.Activate)
	adm.POST("/:id/deactivate", h.Deactivate)
	adm.POST("/:id/image-upload", h.CreateImageUpload)
	adm.POST("/:id/image", h.ConfirmImage)
	return r
}

func sampleProduct(id uuid.UUID) *catalogapp.ProductResponse {
	return &catalogapp.ProductResponse{
		ID:      id,
		Name:    "Espresso Cup",
		Slug:    "espresso-cup",
		SKU:     "CUP-ESP-01",
		Price:   decimal.RequireFromString("12.50"),
		Stock:   40,
		InStock: true,
	}
}

func TestProductHandler_List(t *testing.T) {
	categoryID := uuid.New()

	t.Run("parses filters", func(t *testing.T) {
		svc := new(mockProductService)
		svc.On("ListActive", mock.Anything, mock.MatchedBy(func(f catalog.ProductFilter) bool {
			return f.Keyword == "cup" &&
				f.CategoryID != nil && *f.CategoryID == categoryID &&
				f.MinPrice != nil && f.MinPrice.Equal(decimal.NewFromInt(5)) &&
				f.MaxPrice != nil && f.MaxPrice.Equal(decimal.RequireFromString("20.5")) &&
				f.InStock &&
				f.Active == nil &&
				f.Page == 2 && f.PageSize == 10 &&
				f.SortBy == "price" && f.SortOrder == "asc"
		})).Return(shared.NewPaginated([]catalogapp.ProductResponse{*sampleProduct(uuid.New())}, 11, 2, 10), nil)

		r := setupProductRouter(svc)
		w := doRequest(t, r, http.MethodGet,
			"/products?q=cup&category_id="+categoryID.String()+"&min_price=5&max_price=20.5&in_stock=true&active=false&page=2&page_size=10&sort_by=price&sort_order=asc",
			nil, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(11), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		query string
	}{
		{"min above max", "min_price=30&max_price=10"},
		{"bad category", "category_id=nope"},
		{"bad sort", "sort_by=popularity"},
		{"page size too big", "page_size=500"},
		{"non numeric price", "min_price=cheap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockProductService)
			r := setupProductRouter(svc)

			w := doRequest(t, r, http.MethodGet, "/products?"+tt.query, nil, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
		})
	}
}

func TestProductHandler_AdminListKeepsActiveFilter(t *testing.T) {
	svc := new(mockProductService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f catalog.ProductFilter) bool {
		return f.Active != nil && !*f.Active
	})).Return(shared.NewPaginated([]catalogapp.ProductResponse{}, 0, 1, 20), nil)

	r := setupProductRouter(svc)
	w := doRequest(t, r, http.MethodGet, "/admin/products?active=false", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestProductHandler_Get(t *testing.T) {
	id := uuid.New()
	svc := new(mockProductService)
	svc.On("GetActive", mock.Anything, id).Return(sampleProduct(id), nil)
	svc.On("GetActive", mock.Anything, mock.Anything).Return(nil, catalogapp.ErrProductNotFound)
	svc.On("GetActiveBySlug", mock.Anything, "espresso-cup").Return(sampleProduct(id), nil)

	r := setupProductRouter(svc)

	w := doRequest(t, r, http.MethodGet, "/products/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	product := decodeData[catalogapp.ProductResponse](t, w)
	assert.Equal(t, "CUP-ESP-01", product.SKU)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("12.5")))

	w = doRequest(t, r, http.MethodGet, "/products/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", errorCodeOf(t, w))

	w = doRequest(t, r, http.MethodGet, "/products/slug/espresso-cup", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/products/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_Create(t *testing.T) {
	id := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := new(mockProductService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req catalogapp.CreateProductRequest) bool {
			return req.Name == "Espresso Cup" && req.SKU == "CUP-ESP-01" &&
				req.Price.Equal(decimal.RequireFromString("12.50")) && req.Stock == 40
		})).Return(sampleProduct(id), nil)

		r := setupProductRouter(svc)
		w := doRequest(t, r, http.MethodPost, "/admin/products", map[string]any{
			"name": "Espresso Cup", "sku": "CUP-ESP-01", "price": "12.50", "stock": 40,
		}, nil)

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		svc := new(mockProductService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, catalogapp.ErrSKUTaken)

		r := setupProductRouter(svc)
		w := doRequest(t, r, http.MethodPost, "/admin/products", map[string]any{
			"name": "Espresso Cup", "sku": "CUP-ESP-01", "price": "12.50",
		}, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "SKU_TAKEN", errorCodeOf(t, w))
	})

	t.Run("negative stock rejected", func(t *testing.T) {
		svc := new(mockProductService)
		r := setupProductRouter(svc)
		w := doRequest(t, r, http.MethodPost, "/admin/products", map[string]any{
			"name": "Espresso Cup", "sku": "CUP-ESP-01", "price": "12.50", "stock": -1,
		}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCodeOf(t, w))
	})
}

func TestProductHandler_Delete(t *testing.T) {
	id := uuid.New()
	svc := new(mockProductService)
	svc.On("Delete", mock.Anything, id).Return(true, nil)

	r := setupProductRouter(svc)
	w := doRequest(t, r, http.MethodDelete, "/admin/products/"+id.String(), nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[DeleteProductResponse](t, w)
	assert.Equal(t, id, resp.ID)
	assert.True(t, resp.SoftDeleted)
}

func TestProductHandler_UpdateStock(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		match      func(catalogapp.StockRequest) bool
	}{
		{
			name:       "set",
			body:       map[string]any{"set": 25},
			wantStatus: http.StatusOK,
			match:      func(r catalogapp.StockRequest) bool { return r.Set != nil && *r.Set == 25 && r.Delta == nil },
		},
		{
			name:       "delta",
			body:       map[string]any{"delta": -3},
			wantStatus: http.StatusOK,
			match:      func(r catalogapp.StockRequest) bool { return r.Delta != nil && *r.Delta == -3 && r.Set == nil },
		},
		{name: "both", body: map[string]any{"set": 1, "delta": 1}, wantStatus: http.StatusBadRequest},
		{name: "neither", body: map[string]any{}, wantStatus: http.StatusBadRequest},
		{name: "negative set", body: map[string]any{"set": -1}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockProductService)
			if tt.match != nil {
				svc.On("UpdateStock", mock.Anything, id, mock.MatchedBy(tt.match)).Return(sampleProduct(id), nil)
			}
			r := setupProductRouter(svc)

			w := doRequest(t, r, http.MethodPatch, "/admin/products/"+id.String()+"/stock", tt.body, nil)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestProductHandler_ActivateDeactivate(t *testing.T) {
	id := uuid.New()
	svc := new(mockProductService)
	svc.On("Activate", mock.Anything, id).Return(sampleProduct(id), nil)
	svc.On("Deactivate", mock.Anything, id).Return(nil, shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive"))

	r := setupProductRouter(svc)

	w := doRequest(t, r, http.MethodPost, "/admin/products/"+id.String()+"/activate", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPost, "/admin/products/"+id.String()+"/deactivate", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ALREADY_INACTIVE", errorCodeOf(t, w))
}

func TestProductHandler_Images(t *testing.T) {
	id := uuid.New()
	svc := new(mockProductService)
	svc.On("CreateImageUpload", mock.Anything, id, catalogapp.ImageUploadRequest{ContentType: "image/png", Size: 2048}).
		Return(&catalogapp.ImageUploadResponse{UploadURL: "https://bucket.example/put", StorageKey: "products/" + id.String() + "/a.png"}, nil)
	svc.On("ConfirmImage", mock.Anything, id, "products/"+id.String()+"/a.png").Return(nil, catalogapp.ErrImageNotUploaded)

	r := setupProductRouter(svc)

	w := doRequest(t, r, http.MethodPost, "/admin/products/"+id.String()+"/image-upload",
		ImageUploadRequest{ContentType: "image/png", Size: 2048}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upload := decodeData[catalogapp.ImageUploadResponse](t, w)
	assert.Equal(t, "https://bucket.example/put", upload.UploadURL)

	w = doRequest(t, r, http.MethodPost, "/admin/products/"+id.String()+"/image",
		ConfirmImageRequest{StorageKey: upload.StorageKey}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "IMAGE_NOT_UPLOADED", errorCodeOf(t, w))
}

func setupCategoryRouter(svc *mockCategoryService) *gin.Engine {
	h := NewCategoryHandler(svc)
	r := gin.New()
	r.GET("/categories", h.List)
	r.GET("/categories/:id", h.Get)
	r.POST("/admin/categories", h.Create)
	r.PUT("/admin/categories/:id", h.Update)
	r.DELETE("/admin/categories/:id", h.Delete)
	return r
}

func TestCategoryHandler_List(t *testing.T) {
	svc := new(mockCategoryService)
	svc.On("List", mock.Anything).Return([]catalogapp.CategoryResponse{{ID: uuid.New(), Name: "Kitchen", Slug: "kitchen"}}, nil)
	svc.On("Tree", mock.Anything).Return([]catalogapp.CategoryTreeNode{}, nil)

	r := setupCategoryRouter(svc)

	w := doRequest(t, r, http.MethodGet, "/categories", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]catalogapp.CategoryResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "kitchen", list[0].Slug)

	w = doRequest(t, r, http.MethodGet, "/categories?tree=true", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCategoryHandler_Create(t *testing.T) {
	parentID := uuid.New()
	svc := new(mockCategoryService)
	svc.On("Create", mock.Anything, catalogapp.CreateCategoryRequest{Name: "Cups", ParentID: &parentID, SortOrder: 2}).
		Return(&catalogapp.CategoryResponse{ID: uuid.New(), Name: "Cups", Slug: "cups", ParentID: &parentID}, nil)

	r := setupCategoryRouter(svc)
	w := doRequest(t, r, http.MethodPost, "/admin/categories", map[string]any{
		"name": "Cups", "parent_id": parentID.String(), "sort_order": 2,
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestCategoryHandler_Delete(t *testing.T) {
	id := uuid.New()
	svc := new(mockCategoryService)
	svc.On("Delete", mock.Anything, id).Return(catalogapp.ErrCategoryHasChildren)

	r := setupCategoryRouter(svc)
	w := doRequest(t, r, http.MethodDelete, "/admin/categories/"+id.String(), nil, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CATEGORY_HAS_CHILDREN", errorCodeOf(t, w))
}
