package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// maxIdempotencyKeyLength bounds the Idempotency-Key header
const maxIdempotencyKeyLength = 128

// OrderService is the order API the order handler needs
type OrderService interface {
	Checkout(ctx context.Context, input orderapp.CheckoutInput) (*orderapp.OrderResponse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*orderapp.OrderResponse, error)
	GetAny(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID, filter orderapp.ListFilter) (shared.Paginated[orderapp.OrderResponse], error)
	List(ctx context.Context, filter orderapp.ListFilter) (shared.Paginated[orderapp.OrderResponse], error)
	Cancel(ctx context.Context, userID, id uuid.UUID, reason string) (*orderapp.OrderResponse, error)
	UpdateStatus(ctx context.Context, input orderapp.UpdateStatusInput) (*orderapp.OrderResponse, error)
	Invoice(ctx context.Context, requester orderapp.Requester, id uuid.UUID) (*orderapp.Invoice, error)
}

// OrderHandler serves checkout, order history and admin order management
type OrderHandler struct {
	replies
	orderService OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// ShippingAddressRequest is the delivery address sent at checkout
type ShippingAddressRequest struct {
	Recipient  string `json:"recipient" binding:"required,max=100" example:"Ada Lovelace"`
	Phone      string `json:"phone" binding:"required,max=32" example:"+44 20 7946 0000"`
	Line1      string `json:"line1" binding:"required,max=200" example:"12 St James's Square"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100" example:"London"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20" example:"SW1Y 4JH"`
	Country    string `json:"country" binding:"required,iso3166_1_alpha2" example:"GB"`
}

// CheckoutRequest is the body of POST /orders/checkout
type CheckoutRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
	Notes           string                 `json:"notes" binding:"max=500"`
}

// CancelOrderRequest is the optional body of POST /orders/:id/cancel
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Ordered by mistake"`
}

// UpdateOrderStatusRequest is the body of PUT /admin/orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid shipped delivered cancelled" example:"shipped"`
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListQuery holds order listing parameters. user_id is honoured on
// the admin listing only.
type OrderListQuery struct {
	Status      string `form:"status" binding:"omitempty,oneof=pending paid shipped delivered cancelled"`
	OrderNumber string `form:"order_number" binding:"max=64"`
	UserID      string `form:"user_id" binding:"omitempty,uuid"`
	From        string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To          string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy      string `form:"sort_by" binding:"omitempty,oneof=created_at total order_number status"`
	SortOrder   string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// toFilter converts the query. Dates are whole UTC days; to is inclusive.
func (q OrderListQuery) toFilter() orderapp.ListFilter {
	filter := orderapp.ListFilter{
		OrderNumber: strings.TrimSpace(q.OrderNumber),
		Page:        q.Page,
		PageSize:    q.PageSize,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
	}
	if q.Status != "" {
		status := order.Status(q.Status)
		filter.Status = &status
	}
	if id, err := uuid.Parse(q.UserID); err == nil {
		filter.UserID = &id
	}
	if from, err := time.Parse(time.DateOnly, q.From); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.DateOnly, q.To); err == nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return filter
}

// Checkout godoc
// @Summary      Place an order
// @Description  Converts the caller's cart into a pending order, reserving stock. Retrying with the same Idempotency-Key returns the first order.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string          false "Client generated retry key"
// @Param        request         body   CheckoutRequest true  "Shipping address and notes"
// @Success      201 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /orders/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.fail(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Idempotency-Key is too long")
		return
	}
	var req CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	a := req.ShippingAddress
	placed, err := h.orderService.Checkout(c.Request.Context(), orderapp.CheckoutInput{
		UserID: userID,
		Address: order.ShippingAddress{
			Recipient:  a.Recipient,
			Phone:      a.Phone,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		},
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.created(c, placed)
}

// ListMine godoc
// @Summary      Order history
// @Tags         orders
// @Produce      json
// @Param        status     query string false "Order status"
// @Param        from       query string false "Created on or after (YYYY-MM-DD)"
// @Param        to         query string false "Created on or before (YYYY-MM-DD)"
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]orderapp.OrderResponse,meta=dto.PageMeta}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var query OrderListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.orderService.ListMine(c.Request.Context(), userID, query.toFilter())
	if err != nil {
		h.failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Page(page))
}

// Get godoc
// @Summary      Order details
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orderService.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, o)
}

// Cancel godoc
// @Summary      Cancel an order
// @Description  Allowed while the order is pending or paid. Reserved stock is returned.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string             true  "Order ID"
// @Param        request body CancelOrderRequest false "Reason"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	o, err := h.orderService.Cancel(c.Request.Context(), userID, id, strings.TrimSpace(req.Reason))
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, o)
}

// Invoice godoc
// @Summary      Download the invoice
// @Description  PDF invoice of one of the caller's orders. Admins may fetch any invoice.
// @Tags         orders
// @Produce      application/pdf
// @Param        id path string true "Order ID"
// @Success      200 {file} file
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      503 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /orders/{id}/invoice [get]
func (h *OrderHandler) Invoice(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetJWTClaims(c)
	requester := orderapp.Requester{UserID: userID, IsAdmin: claims != nil && claims.IsAdmin()}

	invoice, err := h.orderService.Invoice(c.Request.Context(), requester, id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+invoice.Filename+`"`)
	c.Data(http.StatusOK, invoice.ContentType, invoice.Data)
}

// AdminList godoc
// @Summary      List all orders
// @Tags         admin-orders
// @Produce      json
// @Param        status       query string false "Order status"
// @Param        user_id      query string false "Customer ID"
// @Param        order_number query string false "Order number"
// @Param        from         query string false "Created on or after (YYYY-MM-DD)"
// @Param        to           query string false "Created on or before (YYYY-MM-DD)"
// @Param        sort_by      query string false "created_at, total, order_number or status"
// @Param        sort_order   query string false "asc or desc"
// @Param        page         query int    false "Page number" default(1)
// @Param        page_size    query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]orderapp.OrderResponse,meta=dto.PageMeta}
// @Failure      403 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *OrderHandler) AdminList(c *gin.Context) {
	var query OrderListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.orderService.List(c.Request.Context(), query.toFilter())
	if err != nil {
		h.failWith(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Page(page))
}

// AdminGet godoc
// @Summary      Get any order
// @Tags         admin-orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/orders/{id} [get]
func (h *OrderHandler) AdminGet(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orderService.GetAny(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, o)
}

// UpdateStatus godoc
// @Summary      Move an order along its lifecycle
// @Description  pending to paid or cancelled, paid to shipped or cancelled, shipped to delivered. Cancelling returns stock.
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id      path string                   true "Order ID"
// @Param        request body UpdateOrderStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /admin/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	o, err := h.orderService.UpdateStatus(c.Request.Context(), orderapp.UpdateStatusInput{
		OrderID: id,
		Status:  order.Status(req.Status),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, o)
}
