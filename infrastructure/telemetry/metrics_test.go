package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics creates a provider backed by a manual reader.
func setupTestMetrics(t *testing.T) (*sdkmetric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	config := DefaultMetricsConfig()
	config.MeterProvider = provider
	mp := NewMetricsProvider(config)
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}
	t.Cleanup(func() { _ = reader.Shutdown(context.Background()) })

	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_RecordTransition(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordTransition(ctx, "STEP_COMPLETED", "IN_PROGRESS", "COMPLETED", 3*time.Millisecond)
	mp.RecordTransition(ctx, "REOPENED", "COMPLETED", "IN_PROGRESS", time.Millisecond)

	metrics := collect(t, reader)
	m, ok := metrics["legisflow.stage.transitions"]
	if !ok {
		t.Fatal("legisflow.stage.transitions metric not found")
	}
	if got := sumInt64(t, m); got != 2 {
		t.Errorf("transitions = %d, want 2", got)
	}
	if _, ok := metrics["legisflow.transition.duration"]; !ok {
		t.Error("legisflow.transition.duration metric not found")
	}
}

func TestMetricsProvider_Counters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordNotifications(ctx, "notification", 2)
	mp.RecordNotifications(ctx, "alert", 1)
	mp.RecordNotifications(ctx, "alert", 0)
	mp.RecordDelivery(ctx, "email", true)
	mp.RecordError(ctx, "advance")
	mp.AddOpenStages(ctx, 2)
	mp.AddOpenStages(ctx, -1)

	metrics := collect(t, reader)

	tests := []struct {
		name string
		want int64
	}{
		{"legisflow.notifications.generated", 3},
		{"legisflow.notifications.delivered", 1},
		{"legisflow.errors", 1},
		{"legisflow.stages.open", 1},
	}
	for _, tt := range tests {
		m, ok := metrics[tt.name]
		if !ok {
			t.Errorf("%s metric not found", tt.name)
			continue
		}
		if got := sumInt64(t, m); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = &NoopMetricsProvider{}
	ctx := context.Background()

	m.RecordTransition(ctx, "FINALIZED", "IN_PROGRESS", "COMPLETED", time.Second)
	m.RecordNotifications(ctx, "alert", 1)
	m.RecordDelivery(ctx, "system", false)
	m.RecordError(ctx, "reopen")
	m.AddOpenStages(ctx, 1)
}
