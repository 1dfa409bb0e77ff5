package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// replies is embedded by every handler. Its helpers write the response
// envelope; the ones returning bool have already answered when false.
type replies struct{}

func (replies) ok(c *gin.Context, data any)      { c.JSON(http.StatusOK, dto.OK(data)) }
func (replies) created(c *gin.Context, data any) { c.JSON(http.StatusCreated, dto.OK(data)) }
func (replies) noContent(c *gin.Context)         { c.Status(http.StatusNoContent) }

func (replies) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Fail(code, message, middleware.GetRequestID(c)))
}

// failWith answers with the status and code of err. Domain errors are
// reported as is; anything else becomes a logged 500.
func (r replies) failWith(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, code, message, known := classify(err)
	if !known {
		_ = c.Error(err)
		logger.L(c.Request.Context()).Error("Unhandled request error",
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	r.fail(c, status, code, message)
}

func classify(err error) (status int, code, message string, known bool) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred", false
	}
	code = dto.NormalizeErrorCode(de.Code)
	return dto.GetHTTPStatus(code), code, de.Message, true
}

// currentUserID is for routes behind JWTAuth
func (r replies) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, found := middleware.GetUserUUID(c)
	if !found {
		r.fail(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
	}
	return id, found
}

func (r replies) pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		r.fail(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

func (replies) bindJSON(c *gin.Context, dst any) bool {
	return bound(c, c.ShouldBindJSON(dst))
}

func (replies) bindQuery(c *gin.Context, dst any) bool {
	return bound(c, c.ShouldBindQuery(dst))
}

func bound(c *gin.Context, err error) bool {
	if err != nil {
		middleware.RespondBindError(c, err)
		return false
	}
	return true
}
