package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/legisflow/legisflow/domain/telemetry"
)

// OTelTracer adapts an OpenTelemetry tracer to telemetry.Tracer.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates a tracer from the global OpenTelemetry provider.
func NewOTelTracer(name string) *OTelTracer {
	return NewOTelTracerFromProvider(otel.GetTracerProvider(), name)
}

// NewOTelTracerFromProvider creates a tracer bound to an explicit provider.
func NewOTelTracerFromProvider(tp trace.TracerProvider, name string) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer(name)}
}

// StartSpan implements telemetry.Tracer.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...telemetry.SpanOption) (context.Context, telemetry.Span) {
	var cfg telemetry.SpanConfig
	for _, opt := range opts {
		opt.ApplySpan(&cfg)
	}

	start := []trace.SpanStartOption{trace.WithSpanKind(spanKinds[cfg.Kind])}
	if len(cfg.Attributes) > 0 {
		start = append(start, trace.WithAttributes(toKeyValues(cfg.Attributes)...))
	}

	ctx, span := t.tracer.Start(ctx, name, start...)
	return ctx, recordingSpan{span}
}

var _ telemetry.Tracer = (*OTelTracer)(nil)

// recordingSpan forwards to an OpenTelemetry span.
type recordingSpan struct {
	span trace.Span
}

func (s recordingSpan) End() { s.span.End() }

func (s recordingSpan) SetAttributes(attrs ...telemetry.Attribute) {
	s.span.SetAttributes(toKeyValues(attrs)...)
}

func (s recordingSpan) RecordError(err error) { s.span.RecordError(err) }

func (s recordingSpan) SetStatus(code telemetry.StatusCode, description string) {
	s.span.SetStatus(statusCodes[code], description)
}

func (s recordingSpan) AddEvent(name string, attrs ...telemetry.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toKeyValues(attrs)...))
}

var _ telemetry.Span = recordingSpan{}

// Unknown keys map to the zero value: unspecified kind, unset status.
var (
	spanKinds = map[telemetry.SpanKind]trace.SpanKind{
		telemetry.SpanKindInternal: trace.SpanKindInternal,
		telemetry.SpanKindServer:   trace.SpanKindServer,
		telemetry.SpanKindClient:   trace.SpanKindClient,
		telemetry.SpanKindProducer: trace.SpanKindProducer,
		telemetry.SpanKindConsumer: trace.SpanKindConsumer,
	}
	statusCodes = map[telemetry.StatusCode]codes.Code{
		telemetry.StatusCodeOK:    codes.Ok,
		telemetry.StatusCodeError: codes.Error,
	}
)

// toKeyValues drops attributes whose value type has no OpenTelemetry form.
func toKeyValues(attrs []telemetry.Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		}
	}
	return out
}

// SpanFromContext returns the recording span carried by ctx, or a no-op span.
func SpanFromContext(ctx context.Context) telemetry.Span {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return &noopSpan{}
	}
	return recordingSpan{span}
}
