package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/application/admin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// resultOrNil returns args.Get(0) as *T, tolerating an untyped nil
func resultOrNil[T any](args mock.Arguments) *T {
	if v := args.Get(0); v != nil {
		return v.(*T)
	}
	return nil
}

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, input identityapp.RegisterInput) (*identityapp.AuthResult, error) {
	args := m.Called(ctx, input)
	return resultOrNil[identityapp.AuthResult](args), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, input identityapp.LoginInput) (*identityapp.AuthResult, error) {
	args := m.Called(ctx, input)
	return resultOrNil[identityapp.AuthResult](args), args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, input identityapp.RefreshInput) (*identityapp.AuthResult, error) {
	args := m.Called(ctx, input)
	return resultOrNil[identityapp.AuthResult](args), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, input identityapp.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAuthService) Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserInfo, error) {
	args := m.Called(ctx, userID)
	return resultOrNil[identityapp.UserInfo](args), args.Error(1)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, input identityapp.ChangePasswordInput) (*identityapp.AuthResult, error) {
	args := m.Called(ctx, input)
	return resultOrNil[identityapp.AuthResult](args), args.Error(1)
}

type mockCartService struct{ mock.Mock }

func (m *mockCartService) Get(ctx context.Context, owner cart.Owner) (*cartapp.CartView, error) {
	args := m.Called(ctx, owner)
	return resultOrNil[cartapp.CartView](args), args.Error(1)
}

func (m *mockCartService) AddItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, quantity int) (*cartapp.CartView, error) {
	args := m.Called(ctx, owner, productID, quantity)
	return resultOrNil[cartapp.CartView](args), args.Error(1)
}

func (m *mockCartService) UpdateItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, quantity int) (*cartapp.CartView, error) {
	args := m.Called(ctx, owner, productID, quantity)
	return resultOrNil[cartapp.CartView](args), args.Error(1)
}

func (m *mockCartService) RemoveItem(ctx context.Context, owner cart.Owner, productID uuid.UUID) (*cartapp.CartView, error) {
	args := m.Called(ctx, owner, productID)
	return resultOrNil[cartapp.CartView](args), args.Error(1)
}

func (m *mockCartService) Clear(ctx context.Context, owner cart.Owner) (*cartapp.CartView, error) {
	args := m.Called(ctx, owner)
	return resultOrNil[cartapp.CartView](args), args.Error(1)
}

func (m *mockCartService) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*cartapp.CartView, error) {
	args := m.Called(ctx, sessionID, userID)
	return resultOrNil[cartapp.CartView](args), args.Error(1)
}

type mockProductService struct{ mock.Mock }

func (m *mockProductService) ListActive(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[catalogapp.ProductResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[catalogapp.ProductResponse]), args.Error(1)
}

func (m *mockProductService) List(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[catalogapp.ProductResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[catalogapp.ProductResponse]), args.Error(1)
}

func (m *mockProductService) GetActive(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) GetActiveBySlug(ctx context.Context, slug string) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, slug)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) Get(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, req)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductService) UpdateStock(ctx context.Context, id uuid.UUID, req catalogapp.StockRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) Activate(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) Deactivate(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

func (m *mockProductService) CreateImageUpload(ctx context.Context, id uuid.UUID, req catalogapp.ImageUploadRequest) (*catalogapp.ImageUploadResponse, error) {
	args := m.Called(ctx, id, req)
	return resultOrNil[catalogapp.ImageUploadResponse](args), args.Error(1)
}

func (m *mockProductService) ConfirmImage(ctx context.Context, id uuid.UUID, storageKey string) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, storageKey)
	return resultOrNil[catalogapp.ProductResponse](args), args.Error(1)
}

type mockCategoryService struct{ mock.Mock }

func (m *mockCategoryService) List(ctx context.Context) ([]catalogapp.CategoryResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogapp.CategoryResponse), args.Error(1)
}

func (m *mockCategoryService) Tree(ctx context.Context) ([]catalogapp.CategoryTreeNode, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogapp.CategoryTreeNode), args.Error(1)
}

func (m *mockCategoryService) GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, id)
	return resultOrNil[catalogapp.CategoryResponse](args), args.Error(1)
}

func (m *mockCategoryService) Create(ctx context.Context, req catalogapp.CreateCategoryRequest) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, req)
	return resultOrNil[catalogapp.CategoryResponse](args), args.Error(1)
}

func (m *mockCategoryService) Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateCategoryRequest) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, id, req)
	return resultOrNil[catalogapp.CategoryResponse](args), args.Error(1)
}

func (m *mockCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockOrderService struct{ mock.Mock }

func (m *mockOrderService) Checkout(ctx context.Context, input orderapp.CheckoutInput) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, input)
	return resultOrNil[orderapp.OrderResponse](args), args.Error(1)
}

func (m *mockOrderService) Get(ctx context.Context, userID, id uuid.UUID) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, userID, id)
	return resultOrNil[orderapp.OrderResponse](args), args.Error(1)
}

func (m *mockOrderService) GetAny(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id)
	return resultOrNil[orderapp.OrderResponse](args), args.Error(1)
}

func (m *mockOrderService) ListMine(ctx context.Context, userID uuid.UUID, filter orderapp.ListFilter) (shared.Paginated[orderapp.OrderResponse], error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).(shared.Paginated[orderapp.OrderResponse]), args.Error(1)
}

func (m *mockOrderService) List(ctx context.Context, filter orderapp.ListFilter) (shared.Paginated[orderapp.OrderResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[orderapp.OrderResponse]), args.Error(1)
}

func (m *mockOrderService) Cancel(ctx context.Context, userID, id uuid.UUID, reason string) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, userID, id, reason)
	return resultOrNil[orderapp.OrderResponse](args), args.Error(1)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, input orderapp.UpdateStatusInput) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, input)
	return resultOrNil[orderapp.OrderResponse](args), args.Error(1)
}

func (m *mockOrderService) Invoice(ctx context.Context, requester orderapp.Requester, id uuid.UUID) (*orderapp.Invoice, error) {
	args := m.Called(ctx, requester, id)
	return resultOrNil[orderapp.Invoice](args), args.Error(1)
}

type mockDashboardService struct{ mock.Mock }

func (m *mockDashboardService) Stats(ctx context.Context, lowStockThreshold, recent int) (*admin.DashboardStats, error) {
	args := m.Called(ctx, lowStockThreshold, recent)
	return resultOrNil[admin.DashboardStats](args), args.Error(1)
}

type mockUserAdminService struct{ mock.Mock }

func (m *mockUserAdminService) List(ctx context.Context, filter identity.UserFilter) (shared.Paginated[identityapp.UserInfo], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[identityapp.UserInfo]), args.Error(1)
}

func (m *mockUserAdminService) Get(ctx context.Context, id uuid.UUID) (*identityapp.UserInfo, error) {
	args := m.Called(ctx, id)
	return resultOrNil[identityapp.UserInfo](args), args.Error(1)
}

func (m *mockUserAdminService) SetStatus(ctx context.Context, input identityapp.SetUserStatusInput) (*identityapp.UserInfo, error) {
	args := m.Called(ctx, input)
	return resultOrNil[identityapp.UserInfo](args), args.Error(1)
}

func (m *mockUserAdminService) SetRole(ctx context.Context, input identityapp.SetUserRoleInput) (*identityapp.UserInfo, error) {
	args := m.Called(ctx, input)
	return resultOrNil[identityapp.UserInfo](args), args.Error(1)
}
