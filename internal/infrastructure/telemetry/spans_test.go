package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the test
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestStartServiceSpan_CheckoutAttributes(t *testing.T) {
	rec := recordSpans(t)
	orderID := uuid.New()

	ctx, span := telemetry.StartServiceSpan(context.Background(), "order", "checkout",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, "u-1"),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrItemCount, 3,
		telemetry.SpanAttrAmount, decimal.RequireFromString("42.50"),
		telemetry.SpanAttrIdempotent, false,
		7, "ignored: key is not a string",
	)
	telemetry.AddEvent(span, "stock_reserved", telemetry.SpanAttrQuantity, int64(3))
	telemetry.SetOK(span)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "order.checkout", got.Name())
	assert.Equal(t, trace.SpanKindServer, got.SpanKind())
	assert.Equal(t, codes.Ok, got.Status().Code)
	assert.Equal(t, map[string]string{
		"user_id":           "u-1",
		"order_id":          orderID.String(),
		"item_count":        "3",
		"amount":            "42.5",
		"idempotent_replay": "false",
	}, attrMap(got.Attributes()))
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "stock_reserved", got.Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "cart.merge")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("insufficient stock"))
	span.End()

	got := rec.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "insufficient stock", got.Status().Description)
	require.Len(t, got.Events(), 1, "only the non-nil error is recorded")
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", 1)
		telemetry.AddEvent(nil, "e")
		telemetry.RecordError(nil, errors.New("boom"))
		telemetry.SetOK(nil)
	})
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}

func TestContextWithSpan(t *testing.T) {
	recordSpans(t)
	_, span := telemetry.StartSpan(context.Background(), "admin.dashboard")
	defer span.End()

	ctx := telemetry.ContextWithSpan(context.Background(), span)
	assert.Equal(t, span.SpanContext().SpanID(), telemetry.SpanFromContext(ctx).SpanContext().SpanID())
}
