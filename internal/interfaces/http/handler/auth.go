package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// AuthService is the account API the auth handler needs
type AuthService interface {
	Register(ctx context.Context, input identityapp.RegisterInput) (*identityapp.AuthResult, error)
	Login(ctx context.Context, input identityapp.LoginInput) (*identityapp.AuthResult, error)
	Refresh(ctx context.Context, input identityapp.RefreshInput) (*identityapp.AuthResult, error)
	Logout(ctx context.Context, input identityapp.LogoutInput) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserInfo, error)
	ChangePassword(ctx context.Context, input identityapp.ChangePasswordInput) (*identityapp.AuthResult, error)
}

// CartMerger folds a guest cart into a user cart
type CartMerger interface {
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*cartapp.CartView, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	replies
	authService AuthService
	carts       CartMerger
}

// NewAuthHandler creates a new auth handler. carts may be nil, which
// disables the guest cart merge on sign in.
func NewAuthHandler(authService AuthService, carts CartMerger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		carts:       carts,
	}
}

// Register godoc
// @Summary      Create a customer account
// @Description  Registers a customer and signs them in. A guest cart named by X-Session-ID is merged into the new account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string false "Guest cart session"
// @Param        request body RegisterRequest true "Account details"
// @Success      201 {object} dto.Response{data=AuthResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      409 {object} dto.Response{error=dto.ErrorBody}
// @Failure      429 {object} dto.Response{error=dto.ErrorBody}
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), identityapp.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}

	h.created(c, h.withMergedCart(c, result))
}

// Login godoc
// @Summary      Sign in
// @Description  Exchanges credentials for a token pair. Repeated failures lock the account for a while.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string false "Guest cart session"
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} dto.Response{data=AuthResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      403 {object} dto.Response{error=dto.ErrorBody}
// @Failure      423 {object} dto.Response{error=dto.ErrorBody}
// @Failure      429 {object} dto.Response{error=dto.ErrorBody}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identityapp.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}

	h.ok(c, h.withMergedCart(c, result))
}

// withMergedCart merges the guest cart of the request's session into the
// signed-in user's cart. A failed merge never fails the sign in.
func (h *AuthHandler) withMergedCart(c *gin.Context, result *identityapp.AuthResult) AuthResponse {
	resp := toAuthResponse(result)
	sessionID := middleware.GetSessionID(c)
	if h.carts == nil || sessionID == "" {
		return resp
	}

	view, err := h.carts.Merge(c.Request.Context(), sessionID, result.User.ID)
	if err != nil {
		logger.L(c.Request.Context()).Warn("Guest cart merge failed",
			zap.String("user_id", result.User.ID.String()),
			zap.Error(err))
		return resp
	}
	resp.Cart = view
	return resp
}

// Refresh godoc
// @Summary      Rotate tokens
// @Description  Exchanges a refresh token for a new pair. The presented token is revoked; presenting it again revokes the whole session family.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} dto.Response{data=AuthResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      429 {object} dto.Response{error=dto.ErrorBody}
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), identityapp.RefreshInput{
		RefreshToken: req.RefreshToken,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}

	h.ok(c, toAuthResponse(result))
}

// Logout godoc
// @Summary      Sign out
// @Description  Revokes the given refresh token and the access token used for this call
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} dto.Response{data=MessageResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	input := identityapp.LogoutInput{UserID: userID, RefreshToken: req.RefreshToken}
	if claims := middleware.GetJWTClaims(c); claims != nil {
		input.AccessJTI = claims.ID
		input.AccessTTL = claims.RemainingTTL()
	}

	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, MessageResponse{Message: "Logged out"})
}

// LogoutAll godoc
// @Summary      Sign out everywhere
// @Description  Revokes every refresh token of the caller and invalidates all access tokens issued so far
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=MessageResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.authService.LogoutAll(c.Request.Context(), userID); err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, MessageResponse{Message: "All sessions ended"})
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=UserResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      404 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, toUserResponse(*user))
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Sets a new password, ends every session and returns a fresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Old and new password"
// @Success      200 {object} dto.Response{data=AuthResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorBody}
// @Failure      401 {object} dto.Response{error=dto.ErrorBody}
// @Failure      422 {object} dto.Response{error=dto.ErrorBody}
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.ChangePassword(c.Request.Context(), identityapp.ChangePasswordInput{
		UserID:      userID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		h.failWith(c, err)
		return
	}
	h.ok(c, toAuthResponse(result))
}
