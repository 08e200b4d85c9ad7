// Package live watches a sketch file and reports changes for live reload.
package live

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the event bursts editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher emits a tick on Events whenever the watched sketch changes.
type Watcher struct {
	// Events receives one tick per (debounced) change. Closed on Close.
	Events chan struct{}

	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	done     chan struct{}
	log      *log.Logger
}

// Watch starts watching the sketch at path. fsnotify watches directories
// more reliably than files (editors replace files on save), so the parent
// directory is registered and events are filtered by name.
func Watch(path string, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving sketch path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		Events:   make(chan struct{}, 1),
		path:     abs,
		debounce: debounce,
		fs:       fs,
		done:     make(chan struct{}),
		log:      logger,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	defer close(w.Events)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if w.log != nil {
				w.log.Debug("sketch event", "op", event.Op.String())
			}
			// Restart the debounce window on every change.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.Events <- struct{}{}:
			default:
				// A tick is already pending; one reload covers both.
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn("watch error", "err", err)
			}
		}
	}
}

// relevant reports whether the event concerns the watched sketch itself.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Name != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// Close stops watching and closes Events.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}
