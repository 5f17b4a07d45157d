// Package telemetry provides the tracing interfaces the engine records spans
// through, along with the span names and attribute keys stage operations use.
package telemetry

import (
	"context"
)

// SpanPrefix starts every engine span name.
const SpanPrefix = "legisflow."

// Stage operations that open a span.
const (
	OpCreate   = "create"
	OpAdvance  = "advance"
	OpFinalize = "finalize"
	OpReopen   = "reopen"
	OpCancel   = "cancel"
	OpImport   = "import"
)

// Attribute keys set on stage operation spans.
const (
	AttrProposalID     = "proposal.id"
	AttrStageID        = "stage.id"
	AttrStageTypeID    = "stage_type.id"
	AttrUnitID         = "unit.id"
	AttrFromStatus     = "status.from"
	AttrToStatus       = "status.to"
	AttrSnapshotStages = "snapshot.stages"
)

// SpanName returns the span name for a stage operation.
func SpanName(operation string) string {
	return SpanPrefix + operation
}

// Tracer creates spans for distributed tracing.
type Tracer interface {
	// StartSpan starts a new span and returns a new context containing the span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
}

// Span represents a unit of work in a trace.
type Span interface {
	// End completes the span.
	End()

	// SetAttributes sets attributes on the span.
	SetAttributes(attrs ...Attribute)

	// RecordError records an error on the span.
	RecordError(err error)

	// SetStatus sets the span status.
	SetStatus(code StatusCode, description string)

	// AddEvent adds an event to the span.
	AddEvent(name string, attrs ...Attribute)
}

// SpanOption configures a span.
type SpanOption interface {
	ApplySpan(*SpanConfig)
}

// SpanConfig holds span configuration.
type SpanConfig struct {
	Attributes []Attribute
	Kind       SpanKind
}

// WithAttributes sets span attributes at creation.
func WithAttributes(attrs ...Attribute) SpanOption {
	return SpanOptionFunc(func(c *SpanConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	})
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return SpanOptionFunc(func(c *SpanConfig) {
		c.Kind = kind
	})
}

// SpanOptionFunc is a function that implements SpanOption.
type SpanOptionFunc func(*SpanConfig)

// ApplySpan implements SpanOption.
func (f SpanOptionFunc) ApplySpan(c *SpanConfig) { f(c) }

// SpanKind represents the role of a span.
type SpanKind int

const (
	SpanKindUnspecified SpanKind = iota
	SpanKindInternal
	SpanKindServer
	SpanKindClient
	SpanKindProducer
	SpanKindConsumer
)

// StatusCode represents the status of a span.
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOK
	StatusCodeError
)

// Attribute represents a key-value pair.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// ProposalID tags a span with the proposal it acts on.
func ProposalID(id string) Attribute { return String(AttrProposalID, id) }

// StageID tags a span with a stage instance.
func StageID(id string) Attribute { return String(AttrStageID, id) }

// StageTypeID tags a span with a stage type.
func StageTypeID(id string) Attribute { return String(AttrStageTypeID, id) }

// UnitID tags a span with the responsible unit.
func UnitID(id string) Attribute { return String(AttrUnitID, id) }

// Transition tags a span with the status change it produced.
func Transition(from, to string) []Attribute {
	return []Attribute{String(AttrFromStatus, from), String(AttrToStatus, to)}
}
