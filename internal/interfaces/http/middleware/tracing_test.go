package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(Tracing("storefront", false))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, sr.Ended())
}

func TestTracing_SkipsHealthChecks(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(Tracing("storefront", true))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/catalog/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil))

	require.Len(t, sr.Ended(), 1)
	assert.Contains(t, sr.Ended()[0].Name(), "/api/v1/catalog/products")
}

func TestSpanCaller(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(RequestID(), Tracing("storefront", true))
	r.GET("/api/v1/cart", func(c *gin.Context) {
		c.Set(JWTUserIDKey, "user-1")
		c.Set(JWTRoleKey, "customer")
		c.Next()
	}, SpanCaller(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set(SessionIDHeader, "guest-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "req-42", attrs[AttrRequestID].AsString())
	assert.Equal(t, "user-1", attrs[AttrUserID].AsString())
	assert.Equal(t, "customer", attrs[AttrUserRole].AsString())
	assert.True(t, attrs[AttrGuestSession].AsBool())
}

func TestSpanOutcome(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError bool
		wantCode  bool
	}{
		{"ok", http.StatusOK, false, false},
		{"client error", http.StatusUnprocessableEntity, false, true},
		{"server error", http.StatusServiceUnavailable, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			r := gin.New()
			r.Use(Tracing("storefront", true), SpanOutcome())
			r.GET("/", func(c *gin.Context) { c.Status(tt.status) })
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			if tt.wantError {
				assert.Equal(t, codes.Error, spans[0].Status().Code)
			} else {
				assert.NotEqual(t, codes.Error, spans[0].Status().Code)
			}
			attrs := spanAttrs(spans[0])
			if tt.wantCode {
				assert.Equal(t, int64(tt.status), attrs[AttrStatusCode].AsInt64())
			}
		})
	}
}
