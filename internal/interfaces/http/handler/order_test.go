package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupOrderRouter(svc *mockOrderService, userID uuid.UUID, role string) *gin.Engine {
	h := NewOrderHandler(svc)
	r := gin.New()
	r.Use(authenticateAs(userID, role))
	r.POST("/orders/checkout", h.Checkout)
	r.GET("/orders", h.ListMine)
	r.GET("/orders/:id", h.Get)
	r.GET("/orders/:id/invoice", h.Invoice)
	r.POST("/orders/:id/cancel", h.Cancel)
	r.GET("/admin/orders", h.AdminList)
	r.GET("/admin/orders/:id", h.AdminGet)
	r.PUT("/admin/orders/:id/status", h.UpdateStatus)
	return r
}

func sampleOrder(userID uuid.UUID, status order.Status) *orderapp.OrderResponse {
	return &orderapp.OrderResponse{
		ID:          uuid.New(),
		OrderNumber: "ORD-20261017-0001",
		UserID:      userID,
		Status:      string(status),
		ItemCount:   2,
		Subtotal:    decimal.NewFromInt(25),
	}
}

func validCheckoutBody() map[string]any {
	return map[string]any{
		"shipping_address": map[string]any{
			"recipient":   "Ada Lovelace",
			"phone":       "+44 20 7946 0000",
			"line1":       "12 St James's Square",
			"city":        "London",
			"postal_code": "SW1Y 4JH",
			"country":     "GB",
		},
		"notes": "Leave at reception",
	}
}

func TestOrderHandler_Checkout(t *testing.T) {
	userID := uuid.New()

	t.Run("passes address and idempotency key", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Checkout", mock.Anything, mock.MatchedBy(func(in orderapp.CheckoutInput) bool {
			return in.UserID == userID &&
				in.IdempotencyKey == "retry-key-1" &&
				in.Notes == "Leave at reception" &&
				in.Address.Country == "GB" &&
				in.Address.PostalCode == "SW1Y 4JH"
		})).Return(sampleOrder(userID, order.StatusPending), nil)

		r := setupOrderRouter(svc, userID, "customer")
		w := doRequest(t, r, http.MethodPost, "/orders/checkout", validCheckoutBody(),
			map[string]string{middleware.IdempotencyKeyHeader: " retry-key-1 "})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		placed := decodeData[orderapp.OrderResponse](t, w)
		assert.Equal(t, "pending", placed.Status)
		svc.AssertExpectations(t)
	})

	t.Run("empty cart", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Checkout", mock.Anything, mock.Anything).Return(nil, orderapp.ErrCartEmpty)

		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodPost, "/orders/checkout", validCheckoutBody(), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "CART_EMPTY", errorCodeOf(t, w))
	})

	t.Run("insufficient stock", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Checkout", mock.Anything, mock.Anything).Return(nil, shared.ErrInsufficientStock)

		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodPost, "/orders/checkout", validCheckoutBody(), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInsufficientStock, errorCodeOf(t, w))
	})

	t.Run("concurrent retry", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Checkout", mock.Anything, mock.Anything).Return(nil, orderapp.ErrCheckoutInProgress)

		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodPost, "/orders/checkout", validCheckoutBody(),
			map[string]string{middleware.IdempotencyKeyHeader: "retry-key-1"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid country", func(t *testing.T) {
		svc := new(mockOrderService)
		body := validCheckoutBody()
		body["shipping_address"].(map[string]any)["country"] = "XX"

		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodPost, "/orders/checkout", body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCodeOf(t, w))
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("idempotency key too long", func(t *testing.T) {
		svc := new(mockOrderService)
		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodPost, "/orders/checkout", validCheckoutBody(),
			map[string]string{middleware.IdempotencyKeyHeader: strings.Repeat("k", maxIdempotencyKeyLength+1)})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_ListMine(t *testing.T) {
	userID := uuid.New()
	svc := new(mockOrderService)
	svc.On("ListMine", mock.Anything, userID, mock.MatchedBy(func(f orderapp.ListFilter) bool {
		return f.Status != nil && *f.Status == order.StatusShipped &&
			f.From != nil && f.From.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) &&
			f.To != nil && f.To.After(time.Date(2026, 10, 2, 23, 59, 59, 0, time.UTC)) &&
			f.To.Before(time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)) &&
			f.Page == 1 && f.PageSize == 5
	})).Return(shared.NewPaginated([]orderapp.OrderResponse{*sampleOrder(userID, order.StatusShipped)}, 1, 1, 5), nil)

	r := setupOrderRouter(svc, userID, "customer")
	w := doRequest(t, r, http.MethodGet, "/orders?status=shipped&from=2026-10-01&to=2026-10-02&page=1&page_size=5", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, int64(1), resp.Meta.Total)
	svc.AssertExpectations(t)

	w = doRequest(t, r, http.MethodGet, "/orders?status=lost", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_GetAndCancel(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := new(mockOrderService)
	svc.On("Get", mock.Anything, userID, orderID).Return(nil, orderapp.ErrOrderNotFound)
	svc.On("Cancel", mock.Anything, userID, orderID, "Ordered by mistake").Return(sampleOrder(userID, order.StatusCancelled), nil)
	svc.On("Cancel", mock.Anything, userID, orderID, "").Return(nil, orderapp.ErrOrderNotCancellable)

	r := setupOrderRouter(svc, userID, "customer")

	w := doRequest(t, r, http.MethodGet, "/orders/"+orderID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", errorCodeOf(t, w))

	w = doRequest(t, r, http.MethodPost, "/orders/"+orderID.String()+"/cancel", CancelOrderRequest{Reason: " Ordered by mistake "}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeData[orderapp.OrderResponse](t, w).Status)

	w = doRequest(t, r, http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ORDER_NOT_CANCELLABLE", errorCodeOf(t, w))
}

func TestOrderHandler_Invoice(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	pdf := []byte("%PDF-1.7 test")

	t.Run("customer download", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Invoice", mock.Anything, orderapp.Requester{UserID: userID, IsAdmin: false}, orderID).
			Return(&orderapp.Invoice{Filename: "ORD-20261017-0001.pdf", ContentType: "application/pdf", Data: pdf}, nil)

		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodGet, "/orders/"+orderID.String()+"/invoice", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="ORD-20261017-0001.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, pdf, w.Body.Bytes())
	})

	t.Run("admin flag forwarded", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Invoice", mock.Anything, orderapp.Requester{UserID: userID, IsAdmin: true}, orderID).
			Return(&orderapp.Invoice{Filename: "x.pdf", ContentType: "application/pdf", Data: pdf}, nil)

		w := doRequest(t, setupOrderRouter(svc, userID, "admin"), http.MethodGet, "/orders/"+orderID.String()+"/invoice", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("renderer not configured", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("Invoice", mock.Anything, mock.Anything, orderID).Return(nil, orderapp.ErrInvoiceUnavailable)

		w := doRequest(t, setupOrderRouter(svc, userID, "customer"), http.MethodGet, "/orders/"+orderID.String()+"/invoice", nil, nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "INVOICE_UNAVAILABLE", errorCodeOf(t, w))
	})
}

func TestOrderHandler_AdminList(t *testing.T) {
	adminID := uuid.New()
	customerID := uuid.New()
	svc := new(mockOrderService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f orderapp.ListFilter) bool {
		return f.UserID != nil && *f.UserID == customerID &&
			f.OrderNumber == "ORD-2026" &&
			f.SortBy == "total" && f.SortOrder == "desc"
	})).Return(shared.NewPaginated([]orderapp.OrderResponse{}, 0, 1, 20), nil)

	r := setupOrderRouter(svc, adminID, "admin")
	w := doRequest(t, r, http.MethodGet, "/admin/orders?user_id="+customerID.String()+"&order_number=ORD-2026&sort_by=total&sort_order=desc", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)

	w = doRequest(t, r, http.MethodGet, "/admin/orders?from=17-10-2026", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()

	t.Run("ships", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("UpdateStatus", mock.Anything, orderapp.UpdateStatusInput{OrderID: orderID, Status: order.StatusShipped, Reason: "DHL 123"}).
			Return(sampleOrder(uuid.New(), order.StatusShipped), nil)

		w := doRequest(t, setupOrderRouter(svc, adminID, "admin"), http.MethodPut, "/admin/orders/"+orderID.String()+"/status",
			UpdateOrderStatusRequest{Status: "shipped", Reason: "DHL 123"}, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := new(mockOrderService)
		w := doRequest(t, setupOrderRouter(svc, adminID, "admin"), http.MethodPut, "/admin/orders/"+orderID.String()+"/status",
			UpdateOrderStatusRequest{Status: "refunded"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("illegal transition", func(t *testing.T) {
		svc := new(mockOrderService)
		svc.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil, shared.ErrInvalidState)

		w := doRequest(t, setupOrderRouter(svc, adminID, "admin"), http.MethodPut, "/admin/orders/"+orderID.String()+"/status",
			UpdateOrderStatusRequest{Status: "delivered"}, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, errorCodeOf(t, w))
	})
}
