package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func bodyTooLarge(requestID string) dto.Response {
	return dto.Fail(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID)
}

// BodyLimit caps request bodies at limit bytes. A declared Content-Length
// over the cap is refused up front; chunked bodies fail on read and surface
// through RespondBindError. A non-positive limit disables the check.
func BodyLimit(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, bodyTooLarge(GetRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
