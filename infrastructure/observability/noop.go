package observability

import (
	"context"

	"github.com/legisflow/legisflow/domain/telemetry"
)

// NoopTracer is a no-op tracer implementation.
type NoopTracer struct{}

// NewNoopTracer creates a new no-op tracer.
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

// StartSpan implements telemetry.Tracer.
func (t *NoopTracer) StartSpan(ctx context.Context, _ string, _ ...telemetry.SpanOption) (context.Context, telemetry.Span) {
	return ctx, &noopSpan{}
}

var _ telemetry.Tracer = (*NoopTracer)(nil)

type noopSpan struct{}

func (s *noopSpan) End()                                        {}
func (s *noopSpan) SetAttributes(_ ...telemetry.Attribute)      {}
func (s *noopSpan) RecordError(_ error)                         {}
func (s *noopSpan) SetStatus(_ telemetry.StatusCode, _ string)  {}
func (s *noopSpan) AddEvent(_ string, _ ...telemetry.Attribute) {}

var _ telemetry.Span = (*noopSpan)(nil)
