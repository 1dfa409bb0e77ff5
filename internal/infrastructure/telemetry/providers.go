// Package telemetry wires OpenTelemetry traces, metrics and logs and the
// Pyroscope profiler into the storefront.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	serviceVersion = "1.0.0"
	flushDeadline  = 10 * time.Second
	exportInterval = time.Minute
)

// Collector is the OTLP/gRPC endpoint every signal is exported to. Each
// constructor installs its SDK provider globally.
//
// A nil *TracerProvider, *MeterProvider or *LoggerProvider stands for a
// disabled signal and falls back to the otel globals.
type Collector struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

func (c Collector) resource() (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// sampler maps a ratio onto always, never or parent based sampling
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// flush bounds a provider shutdown so a dead collector cannot hold the
// process open.
func flush(ctx context.Context, log *zap.Logger, signal string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, flushDeadline)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	log.Info("Telemetry provider flushed", zap.String("signal", signal))
	return nil
}

// TracerProvider owns the SDK tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	log      *zap.Logger

	mu           sync.Mutex
	spanProfiles bool
}

// Traces starts span export sampled at ratio and sets the W3C propagators.
func (c Collector) Traces(ctx context.Context, ratio float64, log *zap.Logger) (*TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := c.resource()
	if err != nil {
		return nil, err
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(ratio)),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("Tracing enabled", zap.String("endpoint", c.Endpoint), zap.Float64("sampling_ratio", ratio))
	return &TracerProvider{provider: sdk, log: log}, nil
}

// EnableSpanProfiles tags CPU samples with the active span id. Call it after
// the profiler has started. Repeated calls are no-ops.
func (tp *TracerProvider) EnableSpanProfiles() {
	if tp == nil {
		return
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.spanProfiles {
		return
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp.provider))
	tp.spanProfiles = true
	tp.log.Info("Span profiles enabled")
}

// SpanProfilesEnabled reports whether EnableSpanProfiles took effect
func (tp *TracerProvider) SpanProfilesEnabled() bool {
	if tp == nil {
		return false
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.spanProfiles
}

func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.provider.Tracer(name, opts...)
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	return flush(ctx, tp.log, "trace", tp.provider.Shutdown)
}

// MeterProvider owns the SDK meter provider.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	log      *zap.Logger
}

// Metrics starts a periodic metric reader. A non-positive interval means
// once a minute.
func (c Collector) Metrics(ctx context.Context, interval time.Duration, log *zap.Logger) (*MeterProvider, error) {
	if interval <= 0 {
		interval = exportInterval
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := c.resource()
	if err != nil {
		return nil, err
	}

	sdk := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(sdk)
	log.Info("Metrics enabled", zap.String("endpoint", c.Endpoint), zap.Duration("interval", interval))
	return &MeterProvider{provider: sdk, log: log}, nil
}

func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// Shutdown exports the last collection.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	return flush(ctx, mp.log, "metric", mp.provider.Shutdown)
}

// LoggerProvider owns the SDK log provider fed by the zap bridge.
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	log      *zap.Logger
}

// Logs starts batched log record export.
func (c Collector) Logs(ctx context.Context, log *zap.Logger) (*LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("log exporter: %w", err)
	}
	res, err := c.resource()
	if err != nil {
		return nil, err
	}

	sdk := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(sdk)
	log.Info("Log export enabled", zap.String("endpoint", c.Endpoint))
	return &LoggerProvider{provider: sdk, log: log}, nil
}

// Shutdown flushes buffered records.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp == nil {
		return nil
	}
	return flush(ctx, lp.log, "log", lp.provider.Shutdown)
}
