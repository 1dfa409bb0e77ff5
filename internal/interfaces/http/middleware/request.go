package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Request headers understood by the API
const (
	RequestIDHeader      = "X-Request-ID"
	SessionIDHeader      = "X-Session-ID"
	IdempotencyKeyHeader = "Idempotency-Key"
)

const (
	requestIDKey    = "request_id" // shared with the logger middleware
	maxRequestIDLen = 128
)

// RequestID tags each request with an ID and echoes it back. A client
// supplied ID is kept unless it is longer than 128 bytes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetSessionID returns the trimmed guest session header. Format checks are
// left to the cart domain.
func GetSessionID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(SessionIDHeader))
}
