package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Limits holds runtime-tunable operational limits
type Limits struct {
	// MaxTurns caps the turn limit accepted for a simulation run
	MaxTurns int `yaml:"maxTurns"`
	// FallbackCapacity bounds the degraded-mode cache
	FallbackCapacity int `yaml:"fallbackCapacity"`
	// MaxMessageBytes caps the size of a recorded message
	MaxMessageBytes int `yaml:"maxMessageBytes"`
}

// LimitsWatcher watches a YAML limits file and reloads it on change
type LimitsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  Limits
	mu       sync.RWMutex
	onChange []func(Limits)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewLimitsWatcher loads the limits file and begins tracking it
func NewLimitsWatcher(path string, defaults Limits, logger *zap.Logger) (*LimitsWatcher, error) {
	limits, err := loadLimitsFromFile(path, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial limits: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch limits file: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch limits directory", zap.Error(err))
	}

	return &LimitsWatcher{
		path:    path,
		watcher: watcher,
		current: limits,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for limits changes
func (w *LimitsWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("limits watcher started", zap.String("path", w.path))
}

// Stop stops watching
func (w *LimitsWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *LimitsWatcher) watchLoop() {
	// Debounce so editors doing write+rename trigger one reload
	var debounce *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("limits watcher error", zap.Error(err))
		}
	}
}

func (w *LimitsWatcher) reload() {
	w.mu.RLock()
	defaults := w.current
	w.mu.RUnlock()

	limits, err := loadLimitsFromFile(w.path, defaults)
	if err != nil {
		w.logger.Error("failed to reload limits, keeping current", zap.Error(err))
		return
	}
	if err := validateLimits(limits); err != nil {
		w.logger.Error("invalid limits, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = limits
	handlers := append([]func(Limits){}, w.onChange...)
	w.mu.Unlock()

	if old != limits {
		w.logger.Info("limits reloaded",
			zap.Int("maxTurns", limits.MaxTurns),
			zap.Int("fallbackCapacity", limits.FallbackCapacity),
			zap.Int("maxMessageBytes", limits.MaxMessageBytes),
		)
	}

	for _, handler := range handlers {
		go handler(limits)
	}
}

// OnChange registers a callback invoked after each successful reload
func (w *LimitsWatcher) OnChange(handler func(Limits)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns the limits in effect
func (w *LimitsWatcher) Current() Limits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func validateLimits(l Limits) error {
	if l.MaxTurns < 1 {
		return fmt.Errorf("maxTurns must be positive")
	}
	if l.FallbackCapacity < 1 {
		return fmt.Errorf("fallbackCapacity must be positive")
	}
	if l.MaxMessageBytes < 1 {
		return fmt.Errorf("maxMessageBytes must be positive")
	}
	return nil
}

// loadLimitsFromFile reads the YAML limits file, keeping defaults for
// fields the file does not set
func loadLimitsFromFile(path string, defaults Limits) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("failed to read limits file: %w", err)
	}

	limits := defaults
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return Limits{}, fmt.Errorf("failed to parse limits YAML: %w", err)
	}

	return limits, nil
}
