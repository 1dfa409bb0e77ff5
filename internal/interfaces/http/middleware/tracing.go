// Package middleware provides the gin middleware of the storefront API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes added on top of the otelgin semantic conventions
const (
	AttrRequestID    = attribute.Key("request_id")
	AttrUserID       = attribute.Key("user_id")
	AttrUserRole     = attribute.Key("user_role")
	AttrGuestSession = attribute.Key("cart.guest_session")
	AttrStatusCode   = attribute.Key("http.status_code")
	AttrErrorMessage = attribute.Key("error.message")
)

// Tracing starts a server span per request through otelgin. Health checks
// are not traced. A disabled tracer yields a pass-through handler.
func Tracing(service string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	traced := otelgin.Middleware(service)
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/health") {
			c.Next()
			return
		}
		traced(c)
	}
}

// SpanCaller tags the request span with who is calling. It runs after the
// JWT middleware so the user is known.
func SpanCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(callerAttributes(c)...)
		}
		c.Next()
	}
}

func callerAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	add := func(key attribute.Key, value string) {
		if value != "" {
			attrs = append(attrs, key.String(value))
		}
	}
	add(AttrRequestID, GetRequestID(c))
	add(AttrUserID, GetJWTUserID(c))
	add(AttrUserRole, GetJWTRole(c))
	if GetSessionID(c) != "" {
		attrs = append(attrs, AttrGuestSession.Bool(true))
	}
	return attrs
}

// SpanOutcome records error responses on the request span. Only 5xx marks
// the span as failed; 4xx is the client's fault.
func SpanOutcome() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(AttrStatusCode.Int(status))
		if last := c.Errors.Last(); last != nil {
			span.SetAttributes(AttrErrorMessage.String(last.Error()))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
