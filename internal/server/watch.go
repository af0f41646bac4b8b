package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDelay is how long Watch waits for a burst of changes to settle.
const DefaultWatchDelay = 500 * time.Millisecond

// Watch calls onChange after files under root change. Bursts of events are
// coalesced into a single call. Watch blocks until ctx is done.
func Watch(ctx context.Context, root string, delay time.Duration, onChange func(), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if delay <= 0 {
		delay = DefaultWatchDelay
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := watchRecursive(w, root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	d := newDebouncer(delay, onChange)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watchRecursive(w, ev.Name); err != nil {
						logger.Warn("failed to watch directory", "path", ev.Name, "error", err)
					}
				}
			}
			logger.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
			d.trigger()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// debouncer coalesces rapid event bursts into a single callback.
type debouncer struct {
	mu     sync.Mutex
	timer  *time.Timer
	delay  time.Duration
	onFire func()
}

func newDebouncer(delay time.Duration, onFire func()) *debouncer {
	return &debouncer{delay: delay, onFire: onFire}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Reset(d.delay)
		return
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		d.onFire()
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
