package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	domainconfig "github.com/legisflow/legisflow/domain/config"
)

const watchedYAML = `
name: chamber
version: "1"
notification:
  enabled: true
  endpoints:
    - {channel: email, url: https://hooks.example.org/v1, enabled: true}
`

func TestWatcher_Reload(t *testing.T) {
	path := writeFile(t, "legisflow.yaml", watchedYAML)

	var got *domainconfig.Config
	w, err := NewWatcher(path, func(cfg *domainconfig.Config) { got = cfg })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.fsw.Close()

	if !w.Reload() {
		t.Fatal("Reload() = false for a valid file")
	}
	if got == nil || got.Notification.Endpoints[0].URL != "https://hooks.example.org/v1" {
		t.Fatalf("reloaded config = %+v", got)
	}

	if err := os.WriteFile(path, []byte("name: x\nversion: '1'\nstorage: {backend: cassandra}\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got = nil
	if w.Reload() {
		t.Error("Reload() = true for an invalid file")
	}
	if got != nil {
		t.Error("callback ran for an invalid file")
	}
}

func TestWatcher_ObservesWrites(t *testing.T) {
	path := writeFile(t, "legisflow.yaml", watchedYAML)

	reloaded := make(chan *domainconfig.Config, 4)
	w, err := NewWatcher(path, func(cfg *domainconfig.Config) { reloaded <- cfg }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	}()

	updated := []byte("name: chamber\nversion: '2'\n")
	if err := os.WriteFile(path, updated, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Version != "2" {
			t.Errorf("Version = %q, want 2", cfg.Version)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	path := writeFile(t, "legisflow.yaml", watchedYAML)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.fsw.Close()

	w.handle(fsnotifyEvent(path + ".swp"))
	if w.pending {
		t.Error("sibling file marked the config pending")
	}
	w.handle(fsnotifyEvent(path))
	if !w.pending {
		t.Error("write to the config did not mark it pending")
	}
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
