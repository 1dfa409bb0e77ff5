package catalog

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCategoryFixture() (*CategoryService, *MockCategoryRepository, *MockProductRepository) {
	categories := new(MockCategoryRepository)
	products := new(MockProductRepository)
	return NewCategoryService(categories, products, zap.NewNop()), categories, products
}

func mustCategory(t *testing.T, name string, sortOrder int, parent *catalog.Category) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(name, "", parent)
	require.NoError(t, err)
	c.SetSortOrder(sortOrder)
	return c
}

// treeShape reduces a tree to names so cmp output stays readable
type treeShape struct {
	Name     string
	Children []treeShape
}

func shapeOf(nodes []CategoryTreeNode) []treeShape {
	out := make([]treeShape, len(nodes))
	for i, n := range nodes {
		out[i] = treeShape{Name: n.Name, Children: shapeOf(n.Children)}
	}
	return out
}

func TestCategoryService_Tree(t *testing.T) {
	svc, categories, _ := newCategoryFixture()

	apparel := mustCategory(t, "Apparel", 2, nil)
	kitchen := mustCategory(t, "Kitchen", 1, nil)
	tees := mustCategory(t, "T-Shirts", 0, apparel)
	hoodies := mustCategory(t, "Hoodies", 0, apparel)
	mugs := mustCategory(t, "Mugs", 0, kitchen)
	orphanParent := uuid.New()
	orphan := mustCategory(t, "Orphan", 5, nil)
	orphan.ParentID = &orphanParent

	categories.On("FindAll", mock.Anything).
		Return([]*catalog.Category{tees, apparel, mugs, orphan, hoodies, kitchen}, nil)

	tree, err := svc.Tree(context.Background())
	require.NoError(t, err)

	want := []treeShape{
		{Name: "Kitchen", Children: []treeShape{{Name: "Mugs", Children: []treeShape{}}}},
		{Name: "Apparel", Children: []treeShape{
			{Name: "Hoodies", Children: []treeShape{}},
			{Name: "T-Shirts", Children: []treeShape{}},
		}},
		{Name: "Orphan", Children: []treeShape{}},
	}
	if diff := cmp.Diff(want, shapeOf(tree), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("category tree mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryService_Create(t *testing.T) {
	t.Run("child of existing parent", func(t *testing.T) {
		svc, categories, _ := newCategoryFixture()
		parent := mustCategory(t, "Apparel", 0, nil)

		categories.On("FindByID", mock.Anything, parent.ID).Return(parent, nil)
		categories.On("ExistsBySlug", mock.Anything, "hoodies").Return(false, nil)
		categories.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Category")).Return(nil)

		resp, err := svc.Create(context.Background(), CreateCategoryRequest{
			Name:      "Hoodies",
			ParentID:  &parent.ID,
			SortOrder: 3,
		})
		require.NoError(t, err)

		want := CategoryResponse{Name: "Hoodies", Slug: "hoodies", ParentID: &parent.ID, SortOrder: 3}
		opts := cmpopts.IgnoreFields(CategoryResponse{}, "ID", "CreatedAt", "UpdatedAt")
		if diff := cmp.Diff(want, *resp, opts); diff != "" {
			t.Errorf("response mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown parent", func(t *testing.T) {
		svc, categories, _ := newCategoryFixture()
		missing := uuid.New()
		categories.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)

		_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "Lost", ParentID: &missing})
		assert.ErrorIs(t, err, ErrInvalidParent)
	})

	t.Run("slug taken", func(t *testing.T) {
		svc, categories, _ := newCategoryFixture()
		categories.On("ExistsBySlug", mock.Anything, "mugs").Return(true, nil)

		_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "Mugs"})
		assert.ErrorIs(t, err, ErrSlugTaken)
		categories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCategoryService_UpdateRejectsCycles(t *testing.T) {
	svc, categories, _ := newCategoryFixture()
	root := mustCategory(t, "Root", 0, nil)
	child := mustCategory(t, "Child", 0, root)
	grandchild := mustCategory(t, "Grandchild", 0, child)

	categories.On("FindByID", mock.Anything, root.ID).Return(root, nil)
	categories.On("FindAll", mock.Anything).Return([]*catalog.Category{root, child, grandchild}, nil)

	_, err := svc.Update(context.Background(), root.ID, UpdateCategoryRequest{ParentID: &grandchild.ID})
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = svc.Update(context.Background(), root.ID, UpdateCategoryRequest{ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrInvalidParent)
	categories.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCategoryService_Delete(t *testing.T) {
	tests := []struct {
		name        string
		hasChildren bool
		products    int64
		wantErr     error
	}{
		{name: "empty category", wantErr: nil},
		{name: "has children", hasChildren: true, wantErr: ErrCategoryHasChildren},
		{name: "has products", products: 2, wantErr: ErrCategoryInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, categories, products := newCategoryFixture()
			c := mustCategory(t, "Seasonal", 0, nil)

			categories.On("FindByID", mock.Anything, c.ID).Return(c, nil)
			categories.On("HasChildren", mock.Anything, c.ID).Return(tt.hasChildren, nil)
			products.On("CountByCategory", mock.Anything, c.ID).Return(tt.products, nil).Maybe()
			categories.On("Delete", mock.Anything, c.ID).Return(nil).Maybe()

			err := svc.Delete(context.Background(), c.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				categories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			categories.AssertCalled(t, "Delete", mock.Anything, c.ID)
		})
	}
}

func TestCategoryService_GetByIDNotFound(t *testing.T) {
	svc, categories, _ := newCategoryFixture()
	id := uuid.New()
	categories.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := svc.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
