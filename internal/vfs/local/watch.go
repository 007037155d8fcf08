package local

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ashgrove/medialib/internal/logger"
)

// Watcher wraps an fsnotify.Watcher over a set of local roots, translating
// filesystem change events into reload requests for the discoverer rather
// than replaying individual create/write/remove events — a changed entry
// point is cheap to re-walk and the discoverer's reconciliation already
// handles adds/removes/renames uniformly.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onReload func(entryPoint string)

	mu    sync.Mutex
	roots map[string]string // watched directory path -> owning entry point MRL
	stop  chan struct{}
	done  chan struct{}
}

// NewWatcher creates a Watcher that calls onReload with the owning entry
// point's MRL whenever a watched root changes.
func NewWatcher(onReload func(entryPoint string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		onReload: onReload,
		roots:    make(map[string]string),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add starts watching localPath (a directory) as belonging to entryPointMRL.
func (w *Watcher) Add(localPath, entryPointMRL string) error {
	w.mu.Lock()
	w.roots[localPath] = entryPointMRL
	w.mu.Unlock()
	return w.fsw.Add(localPath)
}

// Remove stops watching localPath.
func (w *Watcher) Remove(localPath string) error {
	w.mu.Lock()
	delete(w.roots, localPath)
	w.mu.Unlock()
	return w.fsw.Remove(localPath)
}

// Close stops the watch loop and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	<-w.done
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem watcher error", logger.Err("error", err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.mu.Lock()
	entryPoint, ok := w.nearestRoot(event.Name)
	w.mu.Unlock()
	if !ok {
		return
	}
	w.onReload(entryPoint)
}

// nearestRoot finds the watched root that is a prefix of changedPath,
// preferring the longest match when roots are nested.
func (w *Watcher) nearestRoot(changedPath string) (string, bool) {
	best := ""
	bestEntryPoint := ""
	for root, entryPoint := range w.roots {
		if len(root) > len(best) && hasPathPrefix(changedPath, root) {
			best = root
			bestEntryPoint = entryPoint
		}
	}
	return bestEntryPoint, best != ""
}

func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
