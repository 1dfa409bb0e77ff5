package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Category error codes
var (
	ErrCategoryInUse       = shared.NewDomainError("CATEGORY_IN_USE", "Category still has products assigned")
	ErrCategoryHasChildren = shared.NewDomainError("CATEGORY_HAS_CHILDREN", "Cannot delete category with children")
	ErrInvalidParent       = shared.NewDomainError("INVALID_PARENT", "Parent category not found or would create a cycle")
)

// CategoryTreeNode is a category with its children, for navigation menus
type CategoryTreeNode struct {
	CategoryResponse
	Children []CategoryTreeNode `json:"children"`
}

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
	logger *zap.Logger,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		logger:       logger,
	}
}

// List returns every category ordered by sort order then name
func (s *CategoryService) List(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = ToCategoryResponse(c)
	}
	return out, nil
}

// Tree returns the categories nested under their parents
func (s *CategoryService) Tree(ctx context.Context) ([]CategoryTreeNode, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return buildCategoryTree(categories), nil
}

// GetByID returns a category
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	var parent *catalog.Category
	if req.ParentID != nil {
		p, err := s.categoryRepo.FindByID(ctx, *req.ParentID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidParent
		}
		if err != nil {
			return nil, err
		}
		parent = p
	}
	category, err := catalog.NewCategory(req.Name, req.Description, parent)
	if err != nil {
		return nil, err
	}
	category.SetSortOrder(req.SortOrder)

	taken, err := s.categoryRepo.ExistsBySlug(ctx, category.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	s.logger.Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("slug", category.Slug))

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Update updates a category
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		name, description := category.Name, category.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := category.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.Slug != nil {
		old := category.Slug
		if err := category.SetSlug(*req.Slug); err != nil {
			return nil, err
		}
		if category.Slug != old {
			taken, err := s.categoryRepo.ExistsBySlug(ctx, category.Slug)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrSlugTaken
			}
		}
	}

	switch {
	case req.ClearParent:
		if err := category.SetParent(nil); err != nil {
			return nil, err
		}
	case req.ParentID != nil:
		if err := s.checkParent(ctx, category.ID, *req.ParentID); err != nil {
			return nil, err
		}
		if err := category.SetParent(req.ParentID); err != nil {
			return nil, err
		}
	}

	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Delete deletes a category. It is refused while products or child
// categories reference it.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	hasChildren, err := s.categoryRepo.HasChildren(ctx, category.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return ErrCategoryHasChildren
	}

	products, err := s.productRepo.CountByCategory(ctx, category.ID)
	if err != nil {
		return err
	}
	if products > 0 {
		return ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

// checkParent rejects a parent that does not exist or that sits below id
func (s *CategoryService) checkParent(ctx context.Context, id, parentID uuid.UUID) error {
	if parentID == id {
		return ErrInvalidParent
	}
	all, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	parents := make(map[uuid.UUID]*uuid.UUID, len(all))
	for _, c := range all {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return ErrInvalidParent
	}
	for cur, steps := &parentID, 0; cur != nil && steps <= len(all); cur, steps = parents[*cur], steps+1 {
		if *cur == id {
			return ErrInvalidParent
		}
	}
	return nil
}

func (s *CategoryService) find(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// buildCategoryTree builds a tree structure from a flat list of categories.
// Categories whose parent is missing are treated as roots.
func buildCategoryTree(categories []*catalog.Category) []CategoryTreeNode {
	children := make(map[uuid.UUID][]*catalog.Category)
	known := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}

	var roots []*catalog.Category
	for _, c := range categories {
		if c.ParentID == nil || !known[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(nodes []*catalog.Category) []CategoryTreeNode
	build = func(nodes []*catalog.Category) []CategoryTreeNode {
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].SortOrder != nodes[j].SortOrder {
				return nodes[i].SortOrder < nodes[j].SortOrder
			}
			return nodes[i].Name < nodes[j].Name
		})
		out := make([]CategoryTreeNode, len(nodes))
		for i, n := range nodes {
			out[i] = CategoryTreeNode{
				CategoryResponse: ToCategoryResponse(n),
				Children:         build(children[n.ID]),
			}
		}
		return out
	}
	return build(roots)
}
