package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domainconfig "nodal/domain/config"
)

// CanvasConfigWatcher reloads the canvas rules file when it changes
type CanvasConfigWatcher struct {
	path        string
	environment string
	watcher     *fsnotify.Watcher
	logger      *zap.Logger
	debounce    time.Duration

	mu       sync.RWMutex
	current  *domainconfig.DomainConfig
	onChange []func(*domainconfig.DomainConfig)

	stopCh   chan struct{}
	stopOnce sync.Once
	started  bool
	done     chan struct{}
}

// NewCanvasConfigWatcher loads the file and prepares to watch it
func NewCanvasConfigWatcher(path, environment string, logger *zap.Logger) (*CanvasConfigWatcher, error) {
	current, err := LoadCanvasConfig(path, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial canvas config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory so editors that save by rename are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &CanvasConfigWatcher{
		path:        path,
		environment: environment,
		watcher:     watcher,
		logger:      logger,
		debounce:    100 * time.Millisecond,
		current:     current,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// Current returns the last valid configuration
func (w *CanvasConfigWatcher) Current() *domainconfig.DomainConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback run after every successful reload
func (w *CanvasConfigWatcher) OnChange(fn func(*domainconfig.DomainConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start begins watching for changes
func (w *CanvasConfigWatcher) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.watchLoop()
	w.logger.Info("Canvas config watcher started", zap.String("path", w.path))
}

// Stop stops watching and waits for the loop to exit
func (w *CanvasConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.mu.RLock()
		started := w.started
		w.mu.RUnlock()
		if started {
			<-w.done
		}
		w.logger.Info("Canvas config watcher stopped")
	})
}

func (w *CanvasConfigWatcher) watchLoop() {
	defer close(w.done)

	var debounceTimer *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// reload swaps in the new rules. An invalid file keeps the current rules.
func (w *CanvasConfigWatcher) reload() {
	next, err := LoadCanvasConfig(w.path, w.environment)
	if err != nil {
		w.logger.Error("Invalid canvas config, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = next
	handlers := append([]func(*domainconfig.DomainConfig){}, w.onChange...)
	w.mu.Unlock()

	for _, handler := range handlers {
		handler(next)
	}
	w.logger.Info("Canvas config reloaded", zap.String("path", w.path))
}
