package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// CategoryService is the category API the category handler needs
type CategoryService interface {
	List(ctx context.Context) ([]catalogapp.CategoryResponse, error)
	Tree(ctx context.Context) ([]catalogapp.CategoryTreeNode, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.CategoryResponse, error)
	Create(ctx context.Context, req catalogapp.CreateCategoryRequest) (*catalogapp.CategoryResponse, error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateCategoryRequest) (*catalogapp.CategoryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryHandler serves category browsing and admin category management
type CategoryHandler struct {
	replies
	categoryService CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest is the body of POST /admin/categories
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100" example:"Kitchen"`
	Description string     `json:"description" binding:"max=2000"`
	ParentID    *uuid.UUID `json:"parent_id" swaggertype:"string"`
	SortOrder   int        `json:"sort_order" example:"0"`
}

// UpdateCategoryRequest is the body of PUT /admin/categories/:id. Omitted
// fields are left unchanged; clear_parent moves the category to the root.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Slug        *string    `json:"slug" binding:"omitempty,min=1,max=120"`
	ParentID    *uuid.UUID `json:"parent_id" swaggertype:"string"`
	ClearParent bool       `json:"clear_parent"`
	SortOrder   *int       `json:"sort_order"`
}

// List godoc
// @Summary      List categories
// @Description  Flat list, or the navigation tree with tree=true
// @Tags         catalog
// @Produce      json
// @Param        tree query bool false "Return nested tree"
// @Success      200 {object} dto.Response{data=[]catalogapp.CategoryResponse}
// @Router       /catalog/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	if c.Query("tree") == "true" {
		tree, err := h.categoryService.Tree(c.Request.Context())
		if err != nil {
			h.failWith(c, err)
			return
		}
		h.ok(c, tree)
		return
	}

	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, categories)
}

// Get godoc
// @Summary      Category details
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Router       /catalog/categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, category)
}

// Create godoc
// @Summary      Create a category
// @Tags         admin-categories
// @Accept       json
// @Produce      json
// @Param        request body CreateCategoryRequest true "Category"
// @Success      201 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), catalogapp.CreateCategoryRequest{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.created(c, category)
}

// Update godoc
// @Summary      Update a category
// @Tags         admin-categories
// @Accept       json
// @Produce      json
// @Param        id      path string                true "Category ID"
// @Param        request body UpdateCategoryRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, catalogapp.UpdateCategoryRequest{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, category)
}

// Delete godoc
// @Summary      Delete a category
// @Description  Refused while products or child categories reference it
// @Tags         admin-categories
// @Param        id path string true "Category ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.failWith(c, err)
		return
	}
	h.noContent(c)
}
