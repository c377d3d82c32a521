package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce collapses editor save bursts into one reload
const DefaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when its files change and hands the new
// runtime settings to registered callbacks. An invalid file is logged and the
// current configuration is kept.
type Watcher struct {
	loader   *Loader
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	current  *Config
	onChange []func(Runtime)
	timer    *time.Timer

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches the loader's directory, starting from current
func NewWatcher(loader *Loader, current *Config, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory rather than the files so atomic saves (rename) and
	// files created after startup are seen.
	if err := fw.Add(loader.basePath); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	files := make(map[string]struct{})
	for _, f := range loader.Files() {
		files[filepath.Clean(f)] = struct{}{}
	}

	return &Watcher{
		loader:   loader,
		watcher:  fw,
		files:    files,
		debounce: DefaultWatchDebounce,
		logger:   logger,
		current:  current,
		stopCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the reload delay; call before Start
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// OnChange registers a callback for configuration changes
func (w *Watcher) OnChange(handler func(Runtime)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns the active configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("dir", w.loader.basePath))
}

// Stop stops watching; safe to call more than once
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		w.logger.Info("Configuration watcher stopped")
	})
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if _, watched := w.files[filepath.Clean(event.Name)]; !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload re-runs the loader and notifies listeners when runtime settings moved
func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	handlers := append(([]func(Runtime))(nil), w.onChange...)
	w.mu.Unlock()

	oldRT, newRT := prev.Runtime(), next.Runtime()
	changes := diffRuntime(oldRT, newRT)
	if len(changes) == 0 {
		w.logger.Debug("Configuration reloaded without runtime changes")
		return
	}
	w.logger.Info("Configuration changes detected", zap.Strings("changes", changes))

	for _, handler := range handlers {
		handler(newRT)
	}
}

func diffRuntime(a, b Runtime) []string {
	var changes []string
	if a.LogLevel != b.LogLevel {
		changes = append(changes, fmt.Sprintf("LogLevel: %s -> %s", a.LogLevel, b.LogLevel))
	}
	if a.EnrichmentEnabled != b.EnrichmentEnabled {
		changes = append(changes, fmt.Sprintf("EnrichmentEnabled: %v -> %v", a.EnrichmentEnabled, b.EnrichmentEnabled))
	}
	if a.EnrichmentTimeout != b.EnrichmentTimeout {
		changes = append(changes, fmt.Sprintf("EnrichmentTimeout: %s -> %s", a.EnrichmentTimeout, b.EnrichmentTimeout))
	}
	if !reflect.DeepEqual(a.ExtraIconRules, b.ExtraIconRules) {
		changes = append(changes, fmt.Sprintf("ExtraIconRules: %d -> %d", len(a.ExtraIconRules), len(b.ExtraIconRules)))
	}
	if a.AutosaveDebounce != b.AutosaveDebounce {
		changes = append(changes, fmt.Sprintf("AutosaveDebounce: %s -> %s", a.AutosaveDebounce, b.AutosaveDebounce))
	}
	return changes
}
