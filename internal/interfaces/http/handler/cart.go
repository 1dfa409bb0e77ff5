package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartService is the cart API the cart handler needs
type CartService interface {
	Get(ctx context.Context, owner cart.Owner) (*cartapp.CartView, error)
	AddItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, quantity int) (*cartapp.CartView, error)
	UpdateItem(ctx context.Context, owner cart.Owner, productID uuid.UUID, quantity int) (*cartapp.CartView, error)
	RemoveItem(ctx context.Context, owner cart.Owner, productID uuid.UUID) (*cartapp.CartView, error)
	Clear(ctx context.Context, owner cart.Owner) (*cartapp.CartView, error)
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*cartapp.CartView, error)
}

// CartHandler serves the shopping cart of signed-in users and guests
type CartHandler struct {
	replies
	cartService CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// AddCartItemRequest is the body of POST /cart/items
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required" swaggertype:"string"`
	Quantity  int       `json:"quantity" binding:"required,gte=1,lte=99" example:"1"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/:product_id
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1,lte=99" example:"2"`
}

// owner resolves whose cart the request addresses: the signed-in user when
// a valid token was sent, otherwise the X-Session-ID guest session
func (h *CartHandler) owner(c *gin.Context) cart.Owner {
	if userID, ok := middleware.GetUserUUID(c); ok {
		return cart.UserOwner(userID)
	}
	return cart.SessionOwner(middleware.GetSessionID(c))
}

// Get godoc
// @Summary      Show the cart
// @Description  Returns the caller's cart with current prices and availability. Guests identify their cart with X-Session-ID.
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID header string false "Guest cart session"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	view, err := h.cartService.Get(c.Request.Context(), h.owner(c))
	h.respond(c, view, err)
}

// AddItem godoc
// @Summary      Add a product to the cart
// @Description  Adds quantity to the product's line, creating the cart on first use
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string             false "Guest cart session"
// @Param        request      body   AddCartItemRequest true  "Product and quantity"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	view, err := h.cartService.AddItem(c.Request.Context(), h.owner(c), req.ProductID, req.Quantity)
	h.respond(c, view, err)
}

// UpdateItem godoc
// @Summary      Change a line quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string                false "Guest cart session"
// @Param        product_id   path   string                true  "Product ID"
// @Param        request      body   UpdateCartItemRequest true  "New quantity"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Router       /cart/items/{product_id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	view, err := h.cartService.UpdateItem(c.Request.Context(), h.owner(c), productID, req.Quantity)
	h.respond(c, view, err)
}

// RemoveItem godoc
// @Summary      Remove a line
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID header string false "Guest cart session"
// @Param        product_id   path   string true  "Product ID"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Router       /cart/items/{product_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	view, err := h.cartService.RemoveItem(c.Request.Context(), h.owner(c), productID)
	h.respond(c, view, err)
}

// Clear godoc
// @Summary      Empty the cart
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID header string false "Guest cart session"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	view, err := h.cartService.Clear(c.Request.Context(), h.owner(c))
	h.respond(c, view, err)
}

// Merge godoc
// @Summary      Merge the guest cart
// @Description  Folds the X-Session-ID guest cart into the signed-in user's cart. Quantities add up, capped per line.
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID header string true "Guest cart session"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /cart/merge [post]
func (h *CartHandler) Merge(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		h.fail(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "X-Session-ID header is required")
		return
	}
	view, err := h.cartService.Merge(c.Request.Context(), sessionID, userID)
	h.respond(c, view, err)
}

func (h *CartHandler) respond(c *gin.Context, view *cartapp.CartView, err error) {
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, view)
}
