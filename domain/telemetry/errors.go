package telemetry

import "errors"

var (
	// ErrTracerNotConfigured indicates the tracer is not configured.
	ErrTracerNotConfigured = errors.New("tracer not configured")

	// ErrUnknownExporter indicates an unsupported span exporter.
	ErrUnknownExporter = errors.New("unknown trace exporter")
)
