// Package observability provides OpenTelemetry tracing for the stage engine.
package observability

import (
	"io"
	"time"
)

// Config configures the tracing infrastructure.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment environment (e.g., "production", "staging").
	Environment string

	// Tracing configures span export.
	Tracing TracingConfig
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled enables tracing (default: false).
	Enabled bool

	// Exporter specifies the trace exporter type.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// SampleRate is the sampling rate (0.0-1.0, default: 1.0).
	SampleRate float64

	// BatchTimeout is the batch export timeout.
	BatchTimeout time.Duration

	// MaxExportBatchSize is the maximum batch size.
	MaxExportBatchSize int

	// Output receives stdout exporter spans. Nil means os.Stdout.
	Output io.Writer
}

// ExporterType specifies the telemetry exporter.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP gRPC endpoint (e.g., Jaeger, Tempo).
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout exports to stdout (useful for development).
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export (no-op).
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "legisflow",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		Tracing: TracingConfig{
			Enabled:            false,
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// Option configures the tracing infrastructure.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithTracing enables tracing with the specified exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithTracingInsecure disables TLS for tracing.
func WithTracingInsecure() Option {
	return func(c *Config) {
		c.Tracing.Insecure = true
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithStdoutTracing enables stdout tracing written to w (nil for os.Stdout).
func WithStdoutTracing(w io.Writer) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = ExporterStdout
		c.Tracing.Output = w
	}
}
