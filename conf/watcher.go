package conf

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kjk/backbone/u"
)

// editors and atomic renames fire several fsnotify events per save
const debounceTimeout = 100 * time.Millisecond

// Watcher reloads a Store whenever its backing file changes on disk.
type Watcher struct {
	store    *Store
	onReload func(error)
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// Watch starts watching the store's backing file and calls
// store.ReadFromDisk whenever it changes. The result of each reload
// (nil or the load error) is reported to onReload, which runs on a
// timer goroutine scheduled by the debouncer. A change landing while
// a reload is in flight schedules another, so invocations can
// overlap: onReload must be safe to call concurrently and must not
// block for long.
//
// The parent directory is watched rather than the file itself: the
// atomic rename done by WriteToDisk replaces the inode, which would
// silently detach a watch on the file.
func Watch(store *Store, onReload func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(store.Path())
	if err = fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w := &Watcher{
		store:    store,
		onReload: onReload,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	path := filepath.Clean(w.store.Path())
	reload := u.NewDebouncer(debounceTimeout, func() {
		w.onReload(w.store.ReadFromDisk())
	})
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload.Trigger()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// keep watching despite errors
		}
	}
}

// Close stops the watcher. A reload already debounced may still fire
// after Close returns.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
