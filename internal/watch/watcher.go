// Package watch reports debounced changes to project input files.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// Change is a detected change to a watched file.
type Change struct {
	File string // absolute path
	// Removed is set when the file no longer exists after the change.
	Removed bool
}

// Watcher monitors files for changes using fsnotify. It watches the
// parent directories so editors that save by rename are still seen.
type Watcher struct {
	Changes  <-chan Change // Read-only external channel
	Debounce time.Duration

	files   map[string]bool
	changes chan Change // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given files.
func NewWatcher(files ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		set[abs] = true
	}

	ch := make(chan Change, 16)
	return &Watcher{
		Changes:  ch,
		Debounce: DefaultDebounce,
		files:    set,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.Debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[filepath.Clean(event.Name)] = time.Now()
			}

		case now := <-ticker.C:
			for file, t := range pending {
				if now.Sub(t) >= w.Debounce {
					w.emit(file)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// emit queues a change. A change already queued for the reader covers
// this one, so a full buffer drops it.
func (w *Watcher) emit(file string) {
	_, err := os.Stat(file)
	select {
	case w.changes <- Change{File: file, Removed: os.IsNotExist(err)}:
	default:
	}
}

// Run calls fn once per debounced change to any of files until ctx is
// done. Changes that remove a file are skipped; fn sees the next write.
func Run(ctx context.Context, fn func(Change), files ...string) error {
	w, err := NewWatcher(files...)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.watcher.Close()
		return err
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-w.Changes:
			if !c.Removed {
				fn(c)
			}
		}
	}
}
