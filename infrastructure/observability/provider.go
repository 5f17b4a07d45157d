package observability

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/legisflow/legisflow/domain/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Provider manages the tracing infrastructure.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	tracer         telemetry.Tracer
	shutdownFuncs  []func(context.Context) error
}

// New creates a new tracing provider.
func New(opts ...Option) (*Provider, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Provider{
		config:        cfg,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	if !cfg.Tracing.Enabled {
		p.tracer = NewNoopTracer()
		return p, nil
	}
	if err := p.setupTracing(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) setupTracing() error {
	ctx := context.Background()

	// Not merged with resource.Default() to avoid schema URL conflicts.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(p.config.ServiceName),
		semconv.ServiceVersion(p.config.ServiceVersion),
		semconv.DeploymentEnvironment(p.config.Environment),
	)

	var exporter sdktrace.SpanExporter

	switch p.config.Tracing.Exporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(p.config.Tracing.Endpoint),
		}
		if p.config.Tracing.Insecure {
			opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return err
		}
		exporter = exp

	case ExporterStdout:
		out := p.config.Tracing.Output
		if out == nil {
			out = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return err
		}
		exporter = exp

	case ExporterNoop:
		p.tracer = NewNoopTracer()
		return nil

	default:
		return fmt.Errorf("%w: %q", telemetry.ErrUnknownExporter, p.config.Tracing.Exporter)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.Tracing.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.Tracing.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.Tracing.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.Tracing.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(p.config.Tracing.MaxExportBatchSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracerProvider = tp
	p.tracer = NewOTelTracerFromProvider(tp, p.config.ServiceName)
	p.shutdownFuncs = append(p.shutdownFuncs, tp.Shutdown)

	return nil
}

// Tracer returns the tracer.
func (p *Provider) Tracer() telemetry.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans and releases exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewNoopProvider creates a provider with a no-op tracer.
func NewNoopProvider() *Provider {
	return &Provider{
		config: DefaultConfig(),
		tracer: NewNoopTracer(),
	}
}
