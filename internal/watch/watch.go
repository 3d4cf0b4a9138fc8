// Package watch reports changes to a tasks file on disk. The file's
// directory is watched rather than the file itself because stores replace
// the file by rename.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a file must be quiet before a change is reported.
const Debounce = 100 * time.Millisecond

// Change is one debounced modification of the watched file.
type Change struct {
	File    string
	Removed bool
	At      time.Time
}

// Watcher monitors a single file.
type Watcher struct {
	File    string
	Changes <-chan Change

	changes chan Change
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for the file at path. Call Start to begin.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	ch := make(chan Change, 16)
	return &Watcher{
		File:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.File), err)
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var last time.Time
	ticker := time.NewTicker(Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if !last.IsZero() {
					w.emit()
				}
				return
			}
			if filepath.Clean(event.Name) != w.File {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				last = time.Now()
			}

		case <-ticker.C:
			if !last.IsZero() && time.Since(last) >= Debounce {
				w.emit()
				last = time.Time{}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) emit() {
	_, err := os.Stat(w.File)
	c := Change{File: w.File, Removed: os.IsNotExist(err), At: time.Now()}
	// A full channel already holds a pending notification for the same file.
	select {
	case w.changes <- c:
	default:
	}
}
