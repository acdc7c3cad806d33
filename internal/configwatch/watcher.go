// Package configwatch watches a configuration file on disk and reloads it
// into typed handlers on change, debounced against editors that rewrite a
// file with several successive syscalls.
package configwatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches path and calls loader fresh on every debounced change,
// handing the result to every registered handler.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)

	mu       sync.Mutex
	handlers []func(T)

	log     *slog.Logger
	watcher *fsnotify.Watcher
}

// Option configures a Watcher.
type Option[T any] func(*Watcher[T])

// WithDebounce overrides the default 1500ms debounce window.
func WithDebounce[T any](d time.Duration) Option[T] {
	return func(w *Watcher[T]) { w.debounce = d }
}

// New creates a Watcher for path. It does not start watching; call Run for
// that.
func New[T any](path string, loader func(string) (T, error), log *slog.Logger, opts ...Option[T]) *Watcher[T] {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher[T]{
		path:     path,
		debounce: 1500 * time.Millisecond,
		loader:   loader,
		log:      log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler invoked with a freshly loaded T after every
// debounced file change.
func (w *Watcher[T]) OnReload(handler func(T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Run watches the file for changes until ctx is canceled.
func (w *Watcher[T]) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	w.watcher = fsw

	if err := fsw.Add(w.path); err != nil {
		return err
	}
	w.log.Info("config watcher started", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.log.Warn("failed to reload config", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	handlers := append([]func(T){}, w.handlers...)
	w.mu.Unlock()

	for _, h := range handlers {
		h(cfg)
	}
}
