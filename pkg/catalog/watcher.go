package catalog

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/gallerysearch/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the database must stay quiet before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls back once writes to a database file settle.
// The file's directory is watched, since SQLite replaces and appends to
// sidecar files (-wal, -journal) rather than the main file alone.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dbPath    string
	debounce  time.Duration
	callback  func()
	logger    *log.Logger

	stop    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	timer   *time.Timer
	running bool
}

// NewWatcher creates a watcher for dbPath. Pass 0 for DefaultDebounce.
func NewWatcher(dbPath string, debounce time.Duration, callback func()) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dbPath:   filepath.Clean(dbPath),
		debounce: debounce,
		callback: callback,
		logger:   logger.New("watcher"),
	}
}

// Start begins watching. Calling it twice is a no-op.
// After a failed Start the watcher can be started again.
func (w *Watcher) Start() error {
	if w.dbPath == MemoryPath {
		return errors.New("cannot watch an in-memory database")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.dbPath)); err != nil {
		fsw.Close()
		return err
	}
	w.fsWatcher = fsw
	w.stop = make(chan struct{})
	w.stopped = make(chan struct{})
	w.running = true

	go w.eventLoop(fsw, w.stop, w.stopped)
	w.logger.Debugf("Watching %s", w.dbPath)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
// A pending callback is cancelled. Stop on a watcher that is not running
// does nothing.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stop, stopped, fsw := w.stop, w.stopped, w.fsWatcher
	w.fsWatcher = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	close(stop)
	fsw.Close()
	<-stopped
}

func (w *Watcher) eventLoop(fsw *fsnotify.Watcher, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	for {
		select {
		case <-stop:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.isDatabaseFile(event.Name) {
		return
	}
	w.scheduleRebuild()
}

// isDatabaseFile matches the database and its -wal and -journal sidecars.
// -shm is left out: readers touch it too.
func (w *Watcher) isDatabaseFile(name string) bool {
	if filepath.Dir(filepath.Clean(name)) != filepath.Dir(w.dbPath) {
		return false
	}
	base := filepath.Base(w.dbPath)
	got := filepath.Base(name)
	if got == base {
		return true
	}
	suffix, ok := strings.CutPrefix(got, base)
	if !ok {
		return false
	}
	switch suffix {
	case "-wal", "-journal":
		return true
	}
	return false
}

func (w *Watcher) scheduleRebuild() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()

		w.logger.Debugf("Change settled, rebuilding from %s", w.dbPath)
		if w.callback != nil {
			w.callback()
		}
	})
}
