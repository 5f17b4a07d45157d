package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainconfig "github.com/legisflow/legisflow/domain/config"
	"github.com/legisflow/legisflow/infrastructure/logging"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc receives every configuration that loads and validates after a
// change to the watched file.
type ReloadFunc func(cfg *domainconfig.Config)

// Watcher reloads a configuration file when it changes on disk. Invalid
// revisions are logged and skipped; the last good configuration stays in
// effect.
type Watcher struct {
	path     string
	loader   *Loader
	onReload ReloadFunc
	debounce time.Duration
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLoader sets the loader used for reloads.
func WithWatchLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		w.loader = l
	}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		loader:   NewLoader(),
		onReload: onReload,
		debounce: DefaultDebounce,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the file's directory so editors that replace the file by
// rename are still observed. It returns once the watch is registered.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	go w.run(ctx)

	logging.Info().
		Add(logging.Component("config_watcher")).
		Add(logging.Str("path", w.path)).
		Msg("watching configuration")
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("config_watcher")).
				Add(logging.ErrorField(err)).
				Msg("watch error")

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	w.pending = true
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	w.Reload()
}

// Reload loads the file immediately and hands a valid result to the
// reload callback. It reports whether the callback ran.
func (w *Watcher) Reload() bool {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config_watcher")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("configuration reload rejected")
		return false
	}

	logging.Info().
		Add(logging.Component("config_watcher")).
		Add(logging.Str("path", w.path)).
		Msg("configuration reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
	return true
}
