package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/legisflow/legisflow/infrastructure/storage/memory"
	"github.com/legisflow/legisflow/infrastructure/telemetry"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "legisflow.yaml")
	content := `
name: chamber
version: "1"
catalog:
  units:
    - {id: board, name: Presiding Board, category: presiding_board, active: true}
  stage_types:
    - {id: received, name: Received, unit_id: board, regimental_deadline: 5}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ctx := context.Background()
	rt, err := Open(ctx, path, BuilderWithMetrics(&telemetry.NoopMetricsProvider{}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = rt.Close() }()

	created, err := rt.Engine.CreateInitialStage(ctx, "p-1", "received", "board", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateInitialStage() error = %v", err)
	}
	if created.Status != StatusInProgress {
		t.Errorf("Status = %s, want %s", created.Status, StatusInProgress)
	}
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "none.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Open() error = %v, want ErrConfigNotFound", err)
	}
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(
		WithCatalog(memory.NewCatalogStore()),
		WithRoutingStore(memory.NewRoutingStore()),
		WithStageStore(memory.NewStageStore()),
		WithHistoryStore(memory.NewHistoryStore()),
		WithNotificationStore(memory.NewNotificationStore()),
		WithLenientTransitions(),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if !engine.Lenient() {
		t.Error("lenient option not applied")
	}
}

func TestConfigSchemaJSON(t *testing.T) {
	t.Parallel()

	out, err := ConfigSchemaJSON()
	if err != nil {
		t.Fatalf("ConfigSchemaJSON() error = %v", err)
	}
	if !strings.Contains(out, "\"storage\"") {
		t.Error("schema missing storage")
	}
}

func TestDefaultSenderConfig(t *testing.T) {
	t.Parallel()

	if cfg := DefaultSenderConfig(); cfg.MaxRetries < 1 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
}
