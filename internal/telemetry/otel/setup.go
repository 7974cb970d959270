// Package otel provides OpenTelemetry TracerProvider, MeterProvider, and LoggerProvider
// configured with OTLP exporters for the OTP gRPC server, plus an adapter that
// writes telemetry events as OTel log records.
package otel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// DefaultMetricInterval is the OTLP metric export period.
const DefaultMetricInterval = 10 * time.Second

// OTPAttributeKeys are the only attributes kept on otp.* instruments. Anything
// else (an email or IP added by mistake) is dropped before export.
var OTPAttributeKeys = []attribute.Key{"purpose", "window", "outcome"}

// Options configures NewProviders.
type Options struct {
	// Endpoint is the collector address, host:port or a URL whose path is ignored.
	// Empty disables export; providers are still built so instruments work.
	Endpoint string
	// Insecure forces plaintext gRPC even for https endpoints.
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	// Environment is APP_ENV, reported as deployment.environment.name.
	Environment string
	// MetricInterval overrides DefaultMetricInterval.
	MetricInterval time.Duration
	// Readers are extra metric readers (a ManualReader in tests).
	Readers []metric.Reader
}

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Resource       *resource.Resource
	// Shutdown flushes and stops every provider. Later calls return the first result.
	Shutdown func(context.Context) error
}

// NewProviders builds the three providers sharing one resource and the otp.* metric views.
// The engine's otp.* counters and the otelgrpc stats handler report through the MeterProvider
// once SetGlobal is called. https endpoints use TLS unless opts.Insecure is set.
func NewProviders(ctx context.Context, opts Options) (*Providers, error) {
	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, err
	}
	meterOpts := []metric.Option{metric.WithResource(res), metric.WithView(views()...)}
	for _, r := range opts.Readers {
		meterOpts = append(meterOpts, metric.WithReader(r))
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
		mp := metric.NewMeterProvider(meterOpts...)
		lp := sdklog.NewLoggerProvider(sdklog.WithResource(res))
		return &Providers{
			TracerProvider: tp,
			MeterProvider:  mp,
			LoggerProvider: lp,
			Resource:       res,
			Shutdown:       shutdownOnce(tp.Shutdown, mp.Shutdown, lp.Shutdown),
		}, nil
	}

	target, insecure, err := parseEndpoint(endpoint, opts.Insecure)
	if err != nil {
		return nil, err
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	logExp, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		_ = metricExp.Shutdown(ctx)
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}

	interval := opts.MetricInterval
	if interval <= 0 {
		interval = DefaultMetricInterval
	}
	meterOpts = append(meterOpts, metric.WithReader(metric.NewPeriodicReader(metricExp, metric.WithInterval(interval))))

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	mp := metric.NewMeterProvider(meterOpts...)
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)), sdklog.WithResource(res))

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Resource:       res,
		Shutdown:       shutdownOnce(tp.Shutdown, mp.Shutdown, lp.Shutdown),
	}, nil
}

// SetGlobal sets the global TracerProvider and MeterProvider so instrumentation (e.g. otelgrpc) uses them.
// It does not set a global LoggerProvider; pass LoggerProvider to NewEventEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}

func newResource(ctx context.Context, opts Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(opts.ServiceVersion))
	}
	if opts.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentNameKey.String(opts.Environment))
	}
	// OTEL_RESOURCE_ATTRIBUTES is applied first so explicit options win.
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	return res, nil
}

// views keeps otp.* counters low-cardinality and drops the otelgrpc per-RPC message
// count histograms, which are always 1 for unary calls.
func views() []metric.View {
	return []metric.View{
		metric.NewView(
			metric.Instrument{Name: "otp.*"},
			metric.Stream{AttributeFilter: attribute.NewAllowKeysFilter(OTPAttributeKeys...)},
		),
		metric.NewView(
			metric.Instrument{Name: "rpc.server.*_per_rpc"},
			metric.Stream{Aggregation: metric.AggregationDrop{}},
		),
	}
}

// parseEndpoint reduces endpoint to the host:port the OTLP gRPC dialer expects.
// Schemeless endpoints are treated as http, so plaintext.
func parseEndpoint(endpoint string, insecureOverride bool) (target string, insecure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, insecureOverride || u.Scheme != "https", nil
}

// shutdownOnce stops providers in reverse construction order exactly once.
func shutdownOnce(fns ...func(context.Context) error) func(context.Context) error {
	var (
		once sync.Once
		err  error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			for i := len(fns) - 1; i >= 0; i-- {
				if e := fns[i](ctx); e != nil {
					slog.WarnContext(ctx, "telemetry: provider shutdown failed", "error", e)
					err = e
				}
			}
		})
		return err
	}
}
