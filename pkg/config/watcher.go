package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"OpsPulse/pkg/logger"
)

// Watcher reloads the configuration file when it changes on disk and hands
// the parsed result to a callback. A malformed edit is logged and the last
// good configuration stays in effect.
type Watcher struct {
	path     string
	logger   *logger.Logger
	onChange func(*Config)
	debounce time.Duration

	fw     *fsnotify.Watcher
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
	timer  *time.Timer
}

// WatcherOption configures Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the delay between the last write event and the reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, lgr *logger.Logger, onChange func(*Config), opts ...WatcherOption) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is required")
	}
	if lgr == nil {
		lgr = logger.NewNop()
	}

	w := &Watcher{
		path:     path,
		logger:   lgr,
		onChange: onChange,
		debounce: 250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching until the context is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify watcher: %w", err)
	}
	w.fw = fw

	// Watch the directory: editors and config maps replace the file via
	// rename, which drops a watch set on the file itself.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("config watcher started", logger.String("path", w.path))
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	base := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", logger.Error(err))
		}
	}
}

// scheduleReload coalesces bursts of write events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadWithEnv(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config",
			logger.String("path", w.path),
			logger.Error(err))
		return
	}

	w.logger.Info("config reloaded", logger.String("path", w.path))
	w.onChange(cfg)
}

// Close stops the watcher and waits for the event loop to drain.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}

	var err error
	if w.fw != nil {
		err = w.fw.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return err
}
