package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	requestBytesBuckets = []float64{100, 500, 1e3, 5e3, 1e4, 5e4, 1e5, 5e5, 1e6}
	// invoices push responses into the megabytes
	responseBytesBuckets = append(requestBytesBuckets[:len(requestBytesBuckets):len(requestBytesBuckets)], 5e6)
)

type httpInstruments struct {
	requests  *telemetry.Counter
	latency   *telemetry.Histogram
	reqBytes  *telemetry.Histogram
	respBytes *telemetry.Histogram
	inflight  metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in   httpInstruments
		errs [5]error
	)
	in.requests, errs[0] = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests served", "{request}")
	in.latency, errs[1] = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	in.reqBytes, errs[2] = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size",
		Unit:        "By",
		Boundaries:  requestBytesBuckets,
	})
	in.respBytes, errs[3] = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size",
		Unit:        "By",
		Boundaries:  responseBytesBuckets,
	})
	in.inflight, errs[4] = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics records request counts, latency, body sizes and in-flight
// requests, labelled by route pattern. Without a meter, or when the
// instruments cannot be created, it passes requests straight through.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	var in *httpInstruments
	if meter != nil {
		in, _ = newHTTPInstruments(meter)
	}
	if in == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inflight.Add(ctx, 1)
		c.Next()
		in.inflight.Add(ctx, -1)

		route := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(routeLabel(c)),
		}
		in.requests.Inc(ctx, append(route,
			telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
			telemetry.AttrUserRole.String(roleLabel(c)),
		)...)
		in.latency.RecordDuration(ctx, time.Since(start), route...)
		if n := c.Request.ContentLength; n > 0 {
			in.reqBytes.Record(ctx, float64(n), route...)
		}
		if n := c.Writer.Size(); n > 0 {
			in.respBytes.Record(ctx, float64(n), route...)
		}
	}
}

// routeLabel keeps cardinality bounded: unmatched paths share one label
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// roleLabel buckets callers as guest, customer or admin
func roleLabel(c *gin.Context) string {
	if role := GetJWTRole(c); role != "" {
		return role
	}
	return "guest"
}
