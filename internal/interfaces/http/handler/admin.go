package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/application/admin"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// DashboardService computes dashboard statistics
type DashboardService interface {
	Stats(ctx context.Context, lowStockThreshold, recent int) (*admin.DashboardStats, error)
}

// UserAdminService is the account management API
type UserAdminService interface {
	List(ctx context.Context, filter identity.UserFilter) (shared.Paginated[identityapp.UserInfo], error)
	Get(ctx context.Context, id uuid.UUID) (*identityapp.UserInfo, error)
	SetStatus(ctx context.Context, input identityapp.SetUserStatusInput) (*identityapp.UserInfo, error)
	SetRole(ctx context.Context, input identityapp.SetUserRoleInput) (*identityapp.UserInfo, error)
}

// AdminHandler serves the dashboard and account management
type AdminHandler struct {
	replies
	dashboard         DashboardService
	users             UserAdminService
	lowStockThreshold int
}

// NewAdminHandler creates a new AdminHandler. lowStockThreshold is used when
// the dashboard request does not name one.
func NewAdminHandler(dashboard DashboardService, users UserAdminService, lowStockThreshold int) *AdminHandler {
	return &AdminHandler{
		dashboard:         dashboard,
		users:             users,
		lowStockThreshold: lowStockThreshold,
	}
}

// DashboardQuery holds dashboard parameters
type DashboardQuery struct {
	LowStockThreshold *int `form:"low_stock_threshold" binding:"omitempty,min=0,max=100000"`
	Recent            int  `form:"recent" binding:"omitempty,min=1,max=50"`
}

// UserListQuery holds account listing parameters
type UserListQuery struct {
	Keyword   string `form:"q" binding:"max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=active locked deactivated"`
	Role      string `form:"role" binding:"omitempty,oneof=customer admin"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at email full_name status last_login_at"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

func (q UserListQuery) toFilter() identity.UserFilter {
	filter := identity.NewUserFilter()
	filter.Keyword = strings.TrimSpace(q.Keyword)
	if q.Status != "" {
		status := identity.UserStatus(q.Status)
		filter.Status = &status
	}
	if q.Role != "" {
		role := identity.Role(q.Role)
		filter.Role = &role
	}
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	if q.SortBy != "" {
		filter.SortBy = q.SortBy
	}
	if q.SortOrder != "" {
		filter.SortOrder = q.SortOrder
	}
	return filter
}

// SetUserStatusRequest is the body of PUT /admin/users/:id/status
type SetUserStatusRequest struct {
	Action string `json:"action" binding:"required,oneof=activate deactivate unlock" example:"unlock"`
}

// SetUserRoleRequest is the body of PUT /admin/users/:id/role
type SetUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer admin" example:"admin"`
}

// Dashboard godoc
// @Summary      Dashboard statistics
// @Description  User, product, order and revenue figures with recent orders, best sellers and low stock products
// @Tags         admin
// @Produce      json
// @Param        low_stock_threshold query int false "Stock level counted as low"
// @Param        recent              query int false "Number of recent orders" default(10)
// @Success      200 {object} dto.Response{data=admin.DashboardStats}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      403 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	var query DashboardQuery
	if !h.bindQuery(c, &query) {
		return
	}
	threshold := h.lowStockThreshold
	if query.LowStockThreshold != nil {
		threshold = *query.LowStockThreshold
	}

	stats, err := h.dashboard.Stats(c.Request.Context(), threshold, query.Recent)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, stats)
}

// ListUsers godoc
// @Summary      List accounts
// @Tags         admin-users
// @Produce      json
// @Param        q          query string false "Email or name keyword"
// @Param        status     query string false "active, locked or deactivated"
// @Param        role       query string false "customer or admin"
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]UserResponse,meta=dto.PageMeta}
// @Failure      403 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var query UserListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.users.List(c.Request.Context(), query.toFilter())
	if err != nil {
		h.failWith(c, err)
		return
	}
	items := make([]UserResponse, len(page.Items))
	for i, u := range page.Items {
		items[i] = toUserResponse(u)
	}
	c.JSON(http.StatusOK, dto.Page(shared.Paginated[UserResponse]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}))
}

// GetUser godoc
// @Summary      Get an account
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, toUserResponse(*user))
}

// SetUserStatus godoc
// @Summary      Activate, deactivate or unlock an account
// @Description  Deactivating ends every session of the account. Admins cannot target themselves.
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Param        id      path string               true "User ID"
// @Param        request body SetUserStatusRequest true "Action"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/users/{id}/status [put]
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req SetUserStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetStatus(c.Request.Context(), identityapp.SetUserStatusInput{
		ActorID: actorID,
		UserID:  id,
		Action:  identityapp.UserStatusAction(req.Action),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, toUserResponse(*user))
}

// SetUserRole godoc
// @Summary      Change an account's role
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Param        id      path string             true "User ID"
// @Param        request body SetUserRoleRequest true "Role"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/users/{id}/role [put]
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req SetUserRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetRole(c.Request.Context(), identityapp.SetUserRoleInput{
		ActorID: actorID,
		UserID:  id,
		Role:    identity.Role(req.Role),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, toUserResponse(*user))
}
