// Package telemetry provides OpenTelemetry metrics for the stage engine.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	transitions   metric.Int64Counter
	notifications metric.Int64Counter
	deliveries    metric.Int64Counter
	errors        metric.Int64Counter

	// Histograms
	transitionDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	openStages metric.Int64UpDownCounter

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/legisflow/legisflow").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider overrides the global meter provider.
	MeterProvider metric.MeterProvider
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/legisflow/legisflow",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		defaults := DefaultMetricsConfig()
		config.MeterName = defaults.MeterName
		if config.MeterVersion == "" {
			config.MeterVersion = defaults.MeterVersion
		}
	}

	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
		metric.WithInstrumentationAttributes(config.Attributes...),
	)

	mp := &MetricsProvider{meter: meter}
	mp.initErr = mp.initInstruments()
	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.transitions, err = mp.meter.Int64Counter(
		"legisflow.stage.transitions",
		metric.WithDescription("Number of stage transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	mp.notifications, err = mp.meter.Int64Counter(
		"legisflow.notifications.generated",
		metric.WithDescription("Number of notifications and alerts generated"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	mp.deliveries, err = mp.meter.Int64Counter(
		"legisflow.notifications.delivered",
		metric.WithDescription("Number of notification delivery attempts"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return err
	}

	mp.errors, err = mp.meter.Int64Counter(
		"legisflow.errors",
		metric.WithDescription("Number of failed engine operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mp.transitionDuration, err = mp.meter.Float64Histogram(
		"legisflow.transition.duration",
		metric.WithDescription("Duration of stage transitions"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.openStages, err = mp.meter.Int64UpDownCounter(
		"legisflow.stages.open",
		metric.WithDescription("Number of in-progress stages"),
		metric.WithUnit("{stage}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordTransition records a stage transition and its duration.
func (mp *MetricsProvider) RecordTransition(ctx context.Context, action, fromStatus, toStatus string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status.from", fromStatus),
		attribute.String("status.to", toStatus),
	)

	mp.transitions.Add(ctx, 1, attrs)
	mp.transitionDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordNotifications records generated notifications of one kind.
func (mp *MetricsProvider) RecordNotifications(ctx context.Context, kind string, count int) {
	if count <= 0 {
		return
	}
	mp.notifications.Add(ctx, int64(count), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDelivery records a notification delivery attempt.
func (mp *MetricsProvider) RecordDelivery(ctx context.Context, channel string, success bool) {
	mp.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.Bool("success", success),
	))
}

// RecordError records a failed operation.
func (mp *MetricsProvider) RecordError(ctx context.Context, operation string) {
	mp.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// AddOpenStages adjusts the in-progress stage gauge.
func (mp *MetricsProvider) AddOpenStages(ctx context.Context, delta int64) {
	if delta == 0 {
		return
	}
	mp.openStages.Add(ctx, delta)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordTransition is a no-op.
func (n *NoopMetricsProvider) RecordTransition(ctx context.Context, action, fromStatus, toStatus string, duration time.Duration) {
}

// RecordNotifications is a no-op.
func (n *NoopMetricsProvider) RecordNotifications(ctx context.Context, kind string, count int) {}

// RecordDelivery is a no-op.
func (n *NoopMetricsProvider) RecordDelivery(ctx context.Context, channel string, success bool) {}

// RecordError is a no-op.
func (n *NoopMetricsProvider) RecordError(ctx context.Context, operation string) {}

// AddOpenStages is a no-op.
func (n *NoopMetricsProvider) AddOpenStages(ctx context.Context, delta int64) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordTransition(ctx context.Context, action, fromStatus, toStatus string, duration time.Duration)
	RecordNotifications(ctx context.Context, kind string, count int)
	RecordDelivery(ctx context.Context, channel string, success bool)
	RecordError(ctx context.Context, operation string)
	AddOpenStages(ctx context.Context, delta int64)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
