package application

import (
	"context"

	tracing "github.com/legisflow/legisflow/domain/telemetry"
)

type spanKey struct{}

// startSpan opens a span for an engine operation and remembers it in the
// returned context so fail can mark it.
func (e *Engine) startSpan(ctx context.Context, operation string, attrs ...tracing.Attribute) (context.Context, tracing.Span) {
	ctx, span := e.tracer.StartSpan(ctx, tracing.SpanName(operation),
		tracing.WithSpanKind(tracing.SpanKindInternal),
		tracing.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, spanKey{}, span), span
}

// markSpanError records err on the span carried by ctx, if any.
func markSpanError(ctx context.Context, err error) {
	span, ok := ctx.Value(spanKey{}).(tracing.Span)
	if !ok {
		return
	}
	span.RecordError(err)
	span.SetStatus(tracing.StatusCodeError, err.Error())
}
