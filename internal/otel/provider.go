// Package otel exports the reader's log records and meters through
// OpenTelemetry.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects where telemetry goes. Writer receives both log records and
// periodic metric dumps; Endpoint adds an OTLP HTTP collector for both.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SourceKind     string // memory source the reads come from
	BatchTimeout   time.Duration
	MetricInterval time.Duration
	Writer         io.Writer
	Endpoint       string
	Insecure       bool
}

// ErrNoExporter is returned when telemetry is enabled with nowhere to send it.
var ErrNoExporter = errors.New("otel enabled but no writer or endpoint configured")

const defaultMetricInterval = 30 * time.Second

// SourceKindKey tags every exported record with the memory source kind.
const SourceKindKey = attribute.Key("monreader.source")

// Provider owns the log and meter providers. The zero Provider is disabled.
type Provider struct {
	logs   *sdklog.LoggerProvider
	meters *sdkmetric.MeterProvider
}

// New builds the providers and installs the meter provider globally, so
// instruments created through otel.Meter by the memory bus, dispatcher and
// tracker are exported.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.Writer == nil && cfg.Endpoint == "" {
		return nil, ErrNoExporter
	}
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	procs, err := logProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}
	readers, err := metricReaders(ctx, cfg)
	if err != nil {
		for _, p := range procs {
			p.Shutdown(ctx)
		}
		return nil, err
	}

	lopts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, p := range procs {
		lopts = append(lopts, sdklog.WithProcessor(p))
	}
	mopts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		mopts = append(mopts, sdkmetric.WithReader(r))
	}

	p := &Provider{
		logs:   sdklog.NewLoggerProvider(lopts...),
		meters: sdkmetric.NewMeterProvider(mopts...),
	}
	otel.SetMeterProvider(p.meters)
	return p, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.SourceKind != "" {
		attrs = append(attrs, SourceKindKey.String(cfg.SourceKind))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	return res, nil
}

func logProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var procs []sdklog.Processor
	batch := func(e sdklog.Exporter) sdklog.Processor {
		return sdklog.NewBatchProcessor(e, sdklog.WithExportTimeout(cfg.BatchTimeout))
	}

	if cfg.Writer != nil {
		e, err := stdoutlog.New(stdoutlog.WithWriter(cfg.Writer), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file log exporter: %w", err)
		}
		procs = append(procs, batch(e))
	}
	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		e, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		procs = append(procs, batch(e))
	}
	return procs, nil
}

func metricReaders(ctx context.Context, cfg Config) ([]sdkmetric.Reader, error) {
	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	periodic := func(e sdkmetric.Exporter) sdkmetric.Reader {
		return sdkmetric.NewPeriodicReader(e, sdkmetric.WithInterval(interval))
	}

	var readers []sdkmetric.Reader
	if cfg.Writer != nil {
		e, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Writer), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file metric exporter: %w", err)
		}
		readers = append(readers, periodic(e))
	}
	if cfg.Endpoint != "" {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		e, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
		}
		readers = append(readers, periodic(e))
	}
	return readers, nil
}

// LoggerProvider returns the log provider for the otelslog bridge, or nil
// when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a meter from this provider, or from the global one when
// disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meters == nil {
		return otel.Meter(name)
	}
	return p.meters.Meter(name)
}

// Flush exports pending log records and the current metric values. Called
// when a session ends so its read counts land next to its records.
func (p *Provider) Flush(ctx context.Context) error {
	var errs []error
	if p.logs != nil {
		if err := p.logs.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing logs: %w", err))
		}
	}
	if p.meters != nil {
		if err := p.meters.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown exports what is left and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping logs: %w", err))
		}
	}
	if p.meters != nil {
		if err := p.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether telemetry is exported.
func (p *Provider) Enabled() bool {
	return p.logs != nil
}
