// Package watch implements core.DirWatcher: plain filesystem existence
// and listing checks, plus a debounced fsnotify watch over a local
// package directory so a long-running process can pick up added,
// removed, or edited package declarations without polling.
//
// The debounce loop is ported from papapumpkin-quasar's nebula file
// watcher, retargeted from task markdown files to package declaration
// directories.
package watch

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 200 * time.Millisecond

// Watcher is a core.DirWatcher backed by the real filesystem.
type Watcher struct{}

// New returns a ready-to-use Watcher.
func New() *Watcher {
	return &Watcher{}
}

// IsDir reports whether path exists and is a directory.
func (w *Watcher) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ReadDir lists the names of path's immediate entries.
func (w *Watcher) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// Watch begins watching path (non-recursively) and calls onChange,
// debounced, whenever an entry inside it is created, removed, or
// written. The returned stop function closes the underlying watcher and
// blocks until its event loop has exited; it is safe to call more than
// once.
func (w *Watcher) Watch(ctx context.Context, path string, onChange func()) (func(), error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	done := make(chan struct{})
	go loop(ctx, fw, onChange, done)

	var stopped bool
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		fw.Close()
		<-done
	}
	return stop, nil
}

func loop(ctx context.Context, fw *fsnotify.Watcher, onChange func(), done chan struct{}) {
	defer close(done)

	pending := false
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				if pending {
					onChange()
				}
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = true
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			if pending {
				pending = false
				onChange()
			}

		case _, ok := <-fw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next successful event still fires.
		}
	}
}
